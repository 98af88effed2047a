package api

import "github.com/lumbra2004/ryanswebservices-sub000/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	UserHandler    *handler.UserHandler
	ChatHandler    *handler.ChatHandler
	WsHandler      *handler.WsHandler
	RequestHandler *handler.RequestHandler
	FileHandler    *handler.FileHandler
	BillingHandler *handler.BillingHandler
}

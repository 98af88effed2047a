package api

import (
	"net/http"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/middleware"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/consts"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/logger"

	"github.com/gin-gonic/gin"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		userGroup := apiGroup.Group("/user")
		{
			// 无需登录即可访问的接口
			userGroup.POST("/login", group.UserHandler.Login)
			userGroup.POST("/register", group.UserHandler.Register)

			authGroup := userGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("/logout", group.UserHandler.Logout)
				authGroup.GET("/info", group.UserHandler.GetMyInfo)
				authGroup.PUT("/info", group.UserHandler.UpdateMyInfo)
				authGroup.PUT("/password", group.UserHandler.ChangePassword)
				authGroup.POST("/cancel", group.UserHandler.Cancel)
			}

			// 需要登录 & 拥有 admin 角色
			adminGroup := authGroup.Group("")
			adminGroup.Use(middleware.CheckRoles(consts.RoleAdmin))
			{
				adminGroup.GET("/roles", group.UserHandler.GetRoles)
				adminGroup.POST("/:id/role/:roleId", group.UserHandler.AddRoleToUser)
				adminGroup.DELETE("/:id/role/:roleId", group.UserHandler.DeleteRoleFromUser)
			}
		}

		chatGroup := apiGroup.Group("/chat")
		{
			// WS 在握手参数中自行鉴权
			chatGroup.GET("/ws", group.WsHandler.Connect)

			authGroup := chatGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.GET("/conversations", group.ChatHandler.GetConversationList)
				authGroup.GET("/history", group.ChatHandler.GetChatHistory)
				authGroup.GET("/unread", group.ChatHandler.GetTotalUnread)
				authGroup.POST("/send", group.ChatHandler.SendMessage)
				authGroup.POST("/read", group.ChatHandler.MarkAsRead)
			}
		}

		requestGroup := apiGroup.Group("/requests")
		{
			// 营销页访客不强制注册即可提交申请，登录用户自动关联账号
			requestGroup.POST("", middleware.AuthOptionalMiddleware(), group.RequestHandler.Create)

			authGroup := requestGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.GET("/mine", group.RequestHandler.ListMine)
				authGroup.GET("/:id", group.RequestHandler.Get)
			}

			staffGroup := authGroup.Group("")
			staffGroup.Use(middleware.CheckRoles(consts.RoleOperator, consts.RoleAdmin))
			{
				staffGroup.GET("", group.RequestHandler.List)
				staffGroup.GET("/search", group.RequestHandler.Search)
				staffGroup.PUT("/:id/status", group.RequestHandler.UpdateStatus)
			}
		}

		fileGroup := apiGroup.Group("/files")
		{
			fileGroup.Use(middleware.AuthMiddleware())
			{
				fileGroup.GET("", group.FileHandler.ListFiles)
				fileGroup.POST("/temp", group.FileHandler.UploadTemp)
				fileGroup.POST("/:id/sign", group.FileHandler.Sign)
			}

			staffGroup := fileGroup.Group("")
			staffGroup.Use(middleware.CheckRoles(consts.RoleOperator, consts.RoleAdmin))
			{
				staffGroup.POST("", group.FileHandler.UploadContract)
				staffGroup.DELETE("/:id", group.FileHandler.Delete)
			}
		}

		billingGroup := apiGroup.Group("/billing")
		{
			// 支付网关回调，验签代替登录态
			billingGroup.POST("/webhook", group.BillingHandler.Webhook)

			authGroup := billingGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.GET("/invoices/mine", group.BillingHandler.ListMine)
				authGroup.GET("/invoices/:id", group.BillingHandler.GetInvoice)
			}

			staffGroup := authGroup.Group("")
			staffGroup.Use(middleware.CheckRoles(consts.RoleOperator, consts.RoleAdmin))
			{
				staffGroup.POST("/invoices", group.BillingHandler.CreateInvoice)
				staffGroup.POST("/invoices/:id/refund", group.BillingHandler.Refund)
				staffGroup.POST("/invoices/:id/void", group.BillingHandler.Void)
				staffGroup.GET("/revenue", group.BillingHandler.Revenue)
			}
		}
	}

	return r
}

package consts

import "time"

// 在线标记按成员心跳维护，超过该窗口没有心跳视为离线
const OperatorPresenceWindow = 60 * time.Second

const (
	MimePrefixImage = "image"
	MimePrefixPDF   = "application/pdf"
)

const (
	RoleCustomer = "CUSTOMER"
	RoleOperator = "OPERATOR"
	RoleAdmin    = "ADMIN"
)

// 推送事件类型
const (
	PushTypeInsert = "INSERT"
	PushTypeUpdate = "UPDATE"
)

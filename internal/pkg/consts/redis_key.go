package consts

const (
	IMUserKey           = "im:user:"
	OperatorPresenceKey = "im:presence:operator"
	FileTempKey         = "file:temp"
	RevenueDailyKey     = "billing:revenue:day:"
	RevenueMonthlyKey   = "billing:revenue:month:"
	WebhookEventKey     = "billing:webhook:"
)

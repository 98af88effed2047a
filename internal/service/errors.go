package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	NotFound            = 404
	InternalServerError = 500
)

var (
	ErrParamInvalid            = errors.New("参数错误")
	ErrUserNotFound            = errors.New("用户不存在")
	ErrUserExist               = errors.New("用户已存在")
	ErrUserEmailExist          = errors.New("邮箱已注册")
	ErrPasswordIncorrect       = errors.New("密码错误")
	ErrMissingLoginCredentials = errors.New("缺少登录凭据")
	ErrUserHasRole             = errors.New("用户已拥有此角色")
	ErrRoleNotFound            = errors.New("角色不存在")
	ErrConversation            = errors.New("会话异常")
	ErrConversationForbidden   = errors.New("无权访问此会话")
	ErrMessageEmpty            = errors.New("消息内容不能为空")
	ErrRequestNotFound         = errors.New("服务申请不存在")
	ErrRequestStatusInvalid    = errors.New("服务申请状态不合法")
	ErrFileNotSupported        = errors.New("不支持的文件类型")
	ErrFileNotExist            = errors.New("文件不存在")
	ErrInvoiceNotFound         = errors.New("账单不存在")
	ErrInvoiceStatusInvalid    = errors.New("账单状态不允许此操作")
	ErrInvoiceAmountInvalid    = errors.New("账单金额不合法")
	ErrWebhookSignature        = errors.New("回调签名校验失败")
	UnauthorizedError          = errors.New("权限不足")
	UnExpectedError            = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:            BadRequest,
	ErrUserNotFound:            NotFound,
	ErrUserExist:               BadRequest,
	ErrUserEmailExist:          BadRequest,
	ErrPasswordIncorrect:       Unauthorized,
	ErrMissingLoginCredentials: Unauthorized,
	ErrUserHasRole:             BadRequest,
	ErrRoleNotFound:            NotFound,
	ErrConversation:            BadRequest,
	ErrConversationForbidden:   Unauthorized,
	ErrMessageEmpty:            BadRequest,
	ErrRequestNotFound:         NotFound,
	ErrRequestStatusInvalid:    BadRequest,
	ErrFileNotSupported:        BadRequest,
	ErrFileNotExist:            NotFound,
	ErrInvoiceNotFound:         NotFound,
	ErrInvoiceStatusInvalid:    BadRequest,
	ErrInvoiceAmountInvalid:    BadRequest,
	ErrWebhookSignature:        Unauthorized,
	UnauthorizedError:          Unauthorized,
	UnExpectedError:            InternalServerError,
}

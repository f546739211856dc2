package domain

import "errors"

// 领域错误哨兵。应用层与接口层通过 errors.Is 判定错误类别并映射响应。
var (
	// ErrInvalidInput 调用方提供的参数不合法（缺失、为空或超出取值范围）。
	ErrInvalidInput = errors.New("invalid input")

	// ErrComplianceRejected 订单未通过合规检查，被拒绝进入撮合。
	ErrComplianceRejected = errors.New("compliance rejected")

	// ErrStoreUnavailable 存储后端不可达或操作失败。
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrMalformedRecord 存储中的记录无法解码。遍历场景下跳过该记录并继续。
	ErrMalformedRecord = errors.New("malformed record")

	// ErrInternalEncode 本地序列化失败，说明进程内状态已不一致，不可恢复。
	ErrInternalEncode = errors.New("internal encode failure")

	// ErrOrderNotFound 订单不存在。
	ErrOrderNotFound = errors.New("order not found")

	// ErrTradeNotFound 成交记录不存在。
	ErrTradeNotFound = errors.New("trade not found")
)

package domain

import (
	"encoding/json"
	"fmt"
)

// sequenceWidth 序列号的固定十进制位数。20 位足以容纳 uint64 全值域。
const sequenceWidth = 20

// BookEntry 订单簿成员信封。
// 有序集合在同一分值下按成员字节序排列，信封的首字段是定宽零填充的
// 序列号字符串，json.Marshal 按字段声明顺序输出，因此同价位成员天然
// 按入簿先后排序，时间优先由此成立。Sequence 必须保持首字段位置与定宽格式。
type BookEntry struct {
	// 入簿序列号（定宽 20 位，零填充）
	Sequence string `json:"seq"`
	// 挂单快照
	Order *Order `json:"order"`
}

// NewBookEntry 以给定序列号包装一笔挂单
func NewBookEntry(sequence uint64, order *Order) *BookEntry {
	return &BookEntry{
		Sequence: FormatSequence(sequence),
		Order:    order,
	}
}

// FormatSequence 将序列号格式化为定宽零填充字符串
func FormatSequence(sequence uint64) string {
	return fmt.Sprintf("%0*d", sequenceWidth, sequence)
}

// Encode 序列化为订单簿成员
func (e *BookEntry) Encode() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("%w: book entry seq %s: %v", ErrInternalEncode, e.Sequence, err)
	}
	return string(data), nil
}

// DecodeBookEntry 从订单簿成员反序列化信封。
// 缺失挂单快照的成员视为损坏记录。
func DecodeBookEntry(raw string) (*BookEntry, error) {
	var entry BookEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("%w: book entry: %v", ErrMalformedRecord, err)
	}
	if entry.Order == nil {
		return nil, fmt.Errorf("%w: book entry missing order", ErrMalformedRecord)
	}
	return &entry, nil
}

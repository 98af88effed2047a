package kafka

import (
	"testing"

	"github.com/IBM/sarama"
)

func TestToCanalMessage(t *testing.T) {
	payload := []byte(`{
		"id": 1,
		"database": "ryansweb",
		"table": "invoices",
		"type": "UPDATE",
		"data": [{"id": "7", "status": "PAID", "amount": "150000"}],
		"old": [{"status": "PENDING"}]
	}`)
	msg := &sarama.ConsumerMessage{Value: payload}

	canalMsg, err := ToCanalMessage(msg, "invoices")
	if err != nil {
		t.Fatalf("ToCanalMessage failed: %v", err)
	}
	if canalMsg.Type != UPDATE {
		t.Errorf("Expected type UPDATE, got %s", canalMsg.Type)
	}
	if got := RowStr(canalMsg.Data[0], "status"); got != "PAID" {
		t.Errorf("Expected status PAID, got %s", got)
	}
	if got := RowStr(canalMsg.Old[0], "status"); got != "PENDING" {
		t.Errorf("Expected old status PENDING, got %s", got)
	}
	if got := StrToUint64(canalMsg.Data[0]["id"]); got != 7 {
		t.Errorf("Expected id 7, got %d", got)
	}
	if got := StrToInt64(canalMsg.Data[0]["amount"]); got != 150000 {
		t.Errorf("Expected amount 150000, got %d", got)
	}
}

// 表名不匹配与空数据都应当拒绝
func TestToCanalMessageGuards(t *testing.T) {
	other := &sarama.ConsumerMessage{Value: []byte(`{"table":"users","type":"INSERT","data":[{"id":"1"}]}`)}
	if _, err := ToCanalMessage(other, "invoices"); err == nil {
		t.Error("Expected error for mismatched table")
	}

	empty := &sarama.ConsumerMessage{Value: []byte(`{"table":"invoices","type":"INSERT","data":[]}`)}
	if _, err := ToCanalMessage(empty, "invoices"); err == nil {
		t.Error("Expected error for empty data")
	}

	bad := &sarama.ConsumerMessage{Value: []byte(`not json`)}
	if _, err := ToCanalMessage(bad, "invoices"); err == nil {
		t.Error("Expected error for malformed payload")
	}
}

// Canal 字段解析对非字符串与非法数字回退为零值
func TestRowConversions(t *testing.T) {
	if got := StrToUint64(nil); got != 0 {
		t.Errorf("Expected 0 for nil, got %d", got)
	}
	if got := StrToUint64("abc"); got != 0 {
		t.Errorf("Expected 0 for non-numeric, got %d", got)
	}
	if got := StrToInt64("-42"); got != -42 {
		t.Errorf("Expected -42, got %d", got)
	}
	row := map[string]interface{}{"name": "官网改版", "nil_field": nil}
	if got := RowStr(row, "name"); got != "官网改版" {
		t.Errorf("Expected 官网改版, got %s", got)
	}
	if got := RowStr(row, "nil_field"); got != "" {
		t.Errorf("Expected empty string for nil field, got %q", got)
	}
	if got := RowStr(row, "missing"); got != "" {
		t.Errorf("Expected empty string for missing key, got %q", got)
	}
}

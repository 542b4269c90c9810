package lu

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestSuccessResponse(t *testing.T) {
	resp := Success(map[string]string{"k": "v"})
	if resp.Code != http.StatusOK {
		t.Errorf("code = %d, want %d", resp.Code, http.StatusOK)
	}
	if resp.Message != "success" {
		t.Errorf("message = %s, want success", resp.Message)
	}
}

func TestFailResponse(t *testing.T) {
	resp := Fail(1001, "请求异常")
	if resp.Code != 1001 || resp.Message != "请求异常" || resp.Data != nil {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestResponseTraceIDOmitted(t *testing.T) {
	data, err := json.Marshal(Success(nil))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) == "" || json.Valid(data) == false {
		t.Fatal("invalid json")
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["trace_id"]; ok {
		t.Error("empty trace_id should be omitted")
	}

	withTrace, _ := json.Marshal(Success(nil).WithTraceID("abc"))
	if err := json.Unmarshal(withTrace, &m); err != nil {
		t.Fatal(err)
	}
	if m["trace_id"] != "abc" {
		t.Errorf("trace_id = %v, want abc", m["trace_id"])
	}
}

func TestNewPageRespNilList(t *testing.T) {
	p := NewPageResp(nil, 0)
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"list":[],"total":0}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}

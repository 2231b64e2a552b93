package telegram

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.Client(), srv.URL, "12345:TEST_TOKEN")
}

func TestGetUpdatesAdvancesOffset(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if !strings.HasSuffix(r.URL.Path, "/getUpdates") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"ok":true,"result":[
			{"update_id":100,"message":{"message_id":1,"chat":{"id":5,"type":"private"},"text":"hi"}},
			{"update_id":101,"chat_join_request":{"chat":{"id":-100,"type":"supergroup"},"from":{"id":5,"first_name":"Mira"},"date":1700000000}}
		]}`)
	})

	updates, next, err := c.GetUpdates(t.Context(), 100, 50*time.Second)
	if err != nil {
		t.Fatalf("GetUpdates: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	if next != 102 {
		t.Errorf("expected next offset 102, got %d", next)
	}
	if got["offset"] != float64(100) || got["timeout"] != float64(50) {
		t.Errorf("unexpected poll payload: %#v", got)
	}
	allowed, _ := got["allowed_updates"].([]any)
	if len(allowed) != 3 {
		t.Errorf("expected 3 allowed update kinds, got %#v", got["allowed_updates"])
	}
	if updates[1].ChatJoinRequest == nil || updates[1].ChatJoinRequest.From.ID != 5 {
		t.Errorf("join request not decoded: %+v", updates[1])
	}
}

func TestGetUpdatesEmptyKeepsOffset(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"result":[]}`)
	})

	updates, next, err := c.GetUpdates(t.Context(), 42, time.Second)
	if err != nil {
		t.Fatalf("GetUpdates: %v", err)
	}
	if len(updates) != 0 {
		t.Errorf("expected no updates, got %d", len(updates))
	}
	if next != 42 {
		t.Errorf("offset must not move on an empty poll, got %d", next)
	}
}

func TestSendMessageWithKeyboard(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		_ = json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":77,"chat":{"id":5,"type":"private"}}}`)
	})

	markup := &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{
		{{Text: "I Agree", CallbackData: "pledge:agree"}},
	}}
	msg, err := c.SendMessage(t.Context(), 5, "please agree", markup)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.MessageID != 77 {
		t.Errorf("expected message id 77, got %d", msg.MessageID)
	}
	if got["chat_id"] != float64(5) || got["text"] != "please agree" {
		t.Errorf("unexpected payload: %#v", got)
	}
	if _, ok := got["reply_markup"]; !ok {
		t.Errorf("expected reply_markup in payload: %#v", got)
	}
}

func TestApproveJoinRequest(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if !strings.HasSuffix(r.URL.Path, "/approveChatJoinRequest") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	})

	if err := c.ApproveJoinRequest(t.Context(), -100, 5); err != nil {
		t.Fatalf("ApproveJoinRequest: %v", err)
	}
	if got["chat_id"] != float64(-100) || got["user_id"] != float64(5) {
		t.Errorf("unexpected payload: %#v", got)
	}
}

func TestCopyMessages(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		_ = json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"ok":true,"result":[{"message_id":1}]}`)
	})

	if err := c.CopyMessages(t.Context(), 5, -200, []int{10, 11}); err != nil {
		t.Fatalf("CopyMessages: %v", err)
	}
	ids, _ := got["message_ids"].([]any)
	if len(ids) != 2 || got["from_chat_id"] != float64(-200) {
		t.Errorf("unexpected payload: %#v", got)
	}
}

func TestCopyMessagesNoIDsSkipsRequest(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		fmt.Fprint(w, `{"ok":true,"result":[]}`)
	})

	if err := c.CopyMessages(t.Context(), 5, -200, nil); err != nil {
		t.Fatalf("CopyMessages: %v", err)
	}
	if called {
		t.Error("empty batch must not hit the API")
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 7","parameters":{"retry_after":7}}`)
	})

	_, err := c.GetMe(t.Context())
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Code != 429 || apiErr.RetryAfter != 7 {
		t.Errorf("unexpected error fields: %+v", apiErr)
	}
}

func TestTransportErrorRedactsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	c := NewClient(nil, srv.URL, "12345:SECRET_TOKEN")

	_, err := c.GetMe(t.Context())
	if err == nil {
		t.Fatal("expected transport error against closed server")
	}
	if strings.Contains(err.Error(), "SECRET_TOKEN") {
		t.Errorf("token leaked into error: %v", err)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name            string
		err             error
		alreadyResolved bool
		permanent       bool
	}{
		{
			"hidden requester",
			&APIError{Code: 400, Description: "Bad Request: HIDE_REQUESTER_MISSING"},
			true, false,
		},
		{
			"already participant",
			&APIError{Code: 400, Description: "Bad Request: USER_ALREADY_PARTICIPANT"},
			true, false,
		},
		{
			"missing admin rights",
			&APIError{Code: 400, Description: "Bad Request: CHAT_ADMIN_REQUIRED"},
			false, true,
		},
		{
			"bot kicked",
			&APIError{Code: 403, Description: "Forbidden: bot was kicked from the supergroup chat"},
			false, true,
		},
		{
			"chat gone",
			&APIError{Code: 400, Description: "Bad Request: chat not found"},
			false, true,
		},
		{
			"rate limited",
			&APIError{Code: 429, Description: "Too Many Requests: retry after 30", RetryAfter: 30},
			false, false,
		},
		{
			"server error",
			&APIError{Code: 502, Description: "Bad Gateway"},
			false, false,
		},
		{
			"network error",
			errors.New("dial tcp: connection refused"),
			false, false,
		},
		{
			"wrapped api error",
			fmt.Errorf("approve: %w", &APIError{Code: 403, Description: "Forbidden"}),
			false, true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsAlreadyResolved(tc.err); got != tc.alreadyResolved {
				t.Errorf("IsAlreadyResolved = %v, want %v", got, tc.alreadyResolved)
			}
			if got := IsPermanent(tc.err); got != tc.permanent {
				t.Errorf("IsPermanent = %v, want %v", got, tc.permanent)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		user User
		want string
	}{
		{User{FirstName: "Mira", LastName: "K"}, "Mira K"},
		{User{FirstName: "Mira"}, "Mira"},
		{User{FirstName: "  Mira  ", LastName: "  "}, "Mira"},
		{User{}, ""},
	}
	for _, tc := range cases {
		if got := tc.user.DisplayName(); got != tc.want {
			t.Errorf("DisplayName(%+v) = %q, want %q", tc.user, got, tc.want)
		}
	}
}

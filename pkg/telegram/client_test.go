package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const testToken = "123:test-token"

func TestGetUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bot"+testToken+"/getUpdates", r.URL.Path)

		var params struct {
			Offset  int64 `json:"offset"`
			Timeout int   `json:"timeout"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		require.Equal(t, int64(7), params.Offset)
		require.Equal(t, 30, params.Timeout)

		w.Write([]byte(`{"ok":true,"result":[
			{"update_id":8,"message":{"message_id":1,"from":{"id":42,"username":"u"},"chat":{"id":42},"text":"/start"}},
			{"update_id":9,"callback_query":{"id":"cb","from":{"id":42},"data":"opt_100_100"}}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testToken)
	updates, err := client.GetUpdates(context.Background(), 7, 30)
	require.NoError(t, err)
	require.Len(t, updates, 2)

	require.EqualValues(t, 8, updates[0].UpdateID)
	require.NotNil(t, updates[0].Message)
	require.Equal(t, "/start", updates[0].Message.Text)
	require.EqualValues(t, 42, updates[0].Message.From.ID)

	require.NotNil(t, updates[1].CallbackQuery)
	require.Equal(t, "opt_100_100", updates[1].CallbackQuery.Data)
}

func TestSendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bot"+testToken+"/sendMessage", r.URL.Path)

		var params map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		require.EqualValues(t, 42, params["chat_id"])
		require.Equal(t, "salom", params["text"])
		require.NotContains(t, params, "reply_markup")

		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testToken)
	require.NoError(t, client.SendMessage(42, "salom", nil))
}

func TestSendMessage_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"ok":false,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testToken)
	err := client.SendMessage(42, "salom", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bot was blocked")
}

func TestSendInvoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bot"+testToken+"/sendInvoice", r.URL.Path)

		var params InvoiceParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		require.EqualValues(t, 42, params.ChatID)
		require.Equal(t, "pay_100_42", params.Payload)
		require.Len(t, params.Prices, 1)
		require.EqualValues(t, 100, params.Prices[0].Amount)

		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testToken)
	err := client.SendInvoice(InvoiceParams{
		ChatID:        42,
		Title:         "100 UC",
		Description:   "Buyurtma: 100 UC",
		Payload:       "pay_100_42",
		ProviderToken: "prov",
		Currency:      "USD",
		Prices:        []LabeledPrice{{Label: "100 UC", Amount: 100}},
	})
	require.NoError(t, err)
}

func TestAnswerCallbackQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bot"+testToken+"/answerCallbackQuery", r.URL.Path)

		var params map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		require.Equal(t, "cb1", params["callback_query_id"])

		w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testToken)
	require.NoError(t, client.AnswerCallbackQuery("cb1"))
}

func TestAnswerPreCheckoutQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var params map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		require.Equal(t, "pcq1", params["pre_checkout_query_id"])
		require.Equal(t, true, params["ok"])

		w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testToken)
	require.NoError(t, client.AnswerPreCheckoutQuery("pcq1", true, ""))
}

func TestSendPhoto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bot"+testToken+"/sendPhoto", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		require.Equal(t, "42", r.FormValue("chat_id"))
		require.Equal(t, "Bank karta", r.FormValue("caption"))

		file, header, err := r.FormFile("photo")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "card.png", header.Filename)

		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, testToken)
	require.NoError(t, client.SendPhoto(42, []byte{0x89, 0x50, 0x4e, 0x47}, "card.png", "Bank karta"))
}

package api

import (
	"encoding/json"
	"io/ioutil"
	"net/http"
	"testing"

	"github.com/openlar/openlar/models"
)

type apiTest struct {
	name       string
	path       string
	method     string
	token      string
	statusCode int
}

func (tg *testGateway) do(t *testing.T, method, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, tg.ts.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestGatewayAuthorization(t *testing.T) {
	tg := newTestGateway(t)

	tests := []apiTest{
		{"shifts without token", "/notifications/shifts", "GET", "", http.StatusForbidden},
		{"shifts with bad token", "/notifications/shifts", "GET", "bogus", http.StatusForbidden},
		{"shifts as relative", "/notifications/shifts", "GET", relativeToken, http.StatusForbidden},
		{"shifts as manager", "/notifications/shifts", "GET", managerToken, http.StatusOK},
		{"messages as manager", "/notifications/messages", "GET", managerToken, http.StatusForbidden},
		{"messages as relative", "/notifications/messages", "GET", relativeToken, http.StatusOK},
		{"ack shifts as relative", "/notifications/shifts", "DELETE", relativeToken, http.StatusForbidden},
		{"ack messages as relative", "/notifications/messages", "DELETE", relativeToken, http.StatusNoContent},
	}

	for _, test := range tests {
		res := tg.do(t, test.method, test.path, test.token)
		if res.StatusCode != test.statusCode {
			t.Errorf("%s: expected status code %d, got %d", test.name, test.statusCode, res.StatusCode)
		}
		res.Body.Close()
	}
}

func TestGatewayCORSPreflight(t *testing.T) {
	tg := newTestGateway(t)

	// Preflights carry no token; they must still match a route so the CORS
	// middleware can answer them.
	req, err := http.NewRequest(http.MethodOptions, tg.ts.URL+"/notifications/shifts", nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("Expected status code 200, got %d", res.StatusCode)
	}
	if res.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected the CORS origin header on the preflight response")
	}
}

func TestGatewayShiftNotice(t *testing.T) {
	tg := newTestGateway(t)

	recipient := uint(1)
	n := &models.Notification{
		Message:     "Shift updated",
		Kind:        models.KindShiftChange,
		RecipientID: &recipient,
	}
	if err := tg.store.Insert(n); err != nil {
		t.Fatal(err)
	}

	res := tg.do(t, "GET", "/notifications/shifts", managerToken)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("Expected status code 200, got %d", res.StatusCode)
	}
	body, err := ioutil.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		t.Fatal(err)
	}

	var notice models.Notification
	if err := json.Unmarshal(body, &notice); err != nil {
		t.Fatal(err)
	}
	if notice.ID != n.ID {
		t.Errorf("Expected notice %s, got %s", n.ID, notice.ID)
	}

	// Acknowledge and verify it is gone.
	res = tg.do(t, "DELETE", "/notifications/shifts", managerToken)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected status code 204, got %d", res.StatusCode)
	}
	res.Body.Close()

	loaded, err := tg.store.Get(n.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Status != models.StatusDone {
		t.Errorf("Expected the notice done, got %s", loaded.Status)
	}
}

func TestGatewayRelativeMessages(t *testing.T) {
	tg := newTestGateway(t)

	mine, other := uint(2), uint(3)
	for _, recipient := range []uint{mine, other} {
		r := recipient
		n := &models.Notification{
			Message:     "New message about resident Maria",
			Kind:        models.KindRelativeMessage,
			RecipientID: &r,
		}
		if err := tg.store.Insert(n); err != nil {
			t.Fatal(err)
		}
	}

	res := tg.do(t, "GET", "/notifications/messages", relativeToken)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("Expected status code 200, got %d", res.StatusCode)
	}
	body, err := ioutil.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		t.Fatal(err)
	}

	var notices []models.Notification
	if err := json.Unmarshal(body, &notices); err != nil {
		t.Fatal(err)
	}
	if len(notices) != 1 {
		t.Fatalf("Expected 1 notice for the caller, got %d", len(notices))
	}
	if notices[0].RecipientID == nil || *notices[0].RecipientID != mine {
		t.Error("Expected only the caller's notice")
	}
}

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

const mockV2Modules = `{"message":"OK","data":{"modules":[{"id":10021,"name":"Heat Pump Home","things":[{"mb_addr":1,"mb_name":"Module 1"}]}]}}`

const mockV2PumpInfo = `{"message":"OK","data":{"moduleid":10021,"type":"AQI","given_name":"John","surname":"Doe","country":"CZ","language":"en","city":"Springfield","latitude":49.5,"longitude":18.2,"exp":0,"output":8,"regulation":"pco5","reservation":false,"notes":""}}`

const mockV2PumpData = `{"error":{"errorId":0,"errorMessage":""},"messageId":1,"timestamp":1660000000,"data":{"varFileData":{"001":{"A_3":"4.2","D_3":"1","I_8":"10"}}}}`

func TestV2Login_Success(t *testing.T) {
	var receivedForm url.Values

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != v2PathLogin {
			t.Errorf("Login path = %s, want %s", r.URL.Path, v2PathLogin)
		}
		r.ParseForm()
		receivedForm = r.PostForm
		w.Write([]byte(mockV2Login))
	}))
	defer server.Close()

	tr := NewTransport(V2)
	tr.SetBaseURL(server.URL)
	tr.SetRequestSpacing(0)

	adapter := &v2Adapter{}
	sess, err := adapter.Login(context.Background(), tr, Credentials{Username: "user@example.com", Password: "hunter2"})
	if err != nil {
		t.Fatalf("Login() error = %v, want nil", err)
	}

	// The current backend takes the password as-is, no digest
	if receivedForm.Get("username") != "user@example.com" {
		t.Errorf("Form username = %s, want user@example.com", receivedForm.Get("username"))
	}
	if receivedForm.Get("password") != "hunter2" {
		t.Errorf("Form password = %s, want hunter2", receivedForm.Get("password"))
	}

	if sess.token != "jwt-abc" {
		t.Errorf("token = %s, want jwt-abc", sess.token)
	}
	if sess.expiresAt.Year() != 2031 {
		t.Errorf("expiresAt = %v, want the declared 2031 expiry", sess.expiresAt)
	}
}

func TestV2Login_UnparseableExpiryFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"jwt-abc","expiresAt":"soon","role":"400","messageId":1}`))
	}))
	defer server.Close()

	tr := NewTransport(V2)
	tr.SetBaseURL(server.URL)
	tr.SetRequestSpacing(0)

	adapter := &v2Adapter{}
	sess, err := adapter.Login(context.Background(), tr, Credentials{Username: "user@example.com", Password: "hunter2"})
	if err != nil {
		t.Fatalf("Login() error = %v, want nil", err)
	}

	ttl := time.Until(sess.expiresAt)
	if ttl < 55*time.Minute || ttl > 65*time.Minute {
		t.Errorf("Fallback session TTL = %v, want about %v", ttl, defaultV2TTL)
	}
}

func TestV2Login_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	tr := NewTransport(V2)
	tr.SetBaseURL(server.URL)
	tr.SetRequestSpacing(0)

	adapter := &v2Adapter{}
	_, err := adapter.Login(context.Background(), tr, Credentials{Username: "user@example.com", Password: "wrong"})
	if err == nil {
		t.Fatal("Login() should fail on 401")
	}

	reason, ok := AuthReasonOf(err)
	if !ok {
		t.Fatalf("Login() error should be auth error, got %T: %v", err, err)
	}
	if reason != AuthInvalidCredentials {
		t.Errorf("Reason = %v, want %v", reason, AuthInvalidCredentials)
	}
}

func TestV2Login_ErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Some deployments answer 200 with an error block instead of a 401
		w.Write([]byte(`{"error":{"errorId":1,"errorMessage":"Invalid user name or password"},"messageId":1}`))
	}))
	defer server.Close()

	tr := NewTransport(V2)
	tr.SetBaseURL(server.URL)
	tr.SetRequestSpacing(0)

	adapter := &v2Adapter{}
	_, err := adapter.Login(context.Background(), tr, Credentials{Username: "user@example.com", Password: "wrong"})
	if err == nil {
		t.Fatal("Login() should fail on an error envelope")
	}

	reason, ok := AuthReasonOf(err)
	if !ok {
		t.Fatalf("Login() error should be auth error, got %T: %v", err, err)
	}
	if reason != AuthInvalidCredentials {
		t.Errorf("Reason = %v, want %v", reason, AuthInvalidCredentials)
	}
}

func TestV2Login_MissingToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"expiresAt":"2031-12-01T16:45:00.000Z","role":"400","messageId":1}`))
	}))
	defer server.Close()

	tr := NewTransport(V2)
	tr.SetBaseURL(server.URL)
	tr.SetRequestSpacing(0)

	adapter := &v2Adapter{}
	_, err := adapter.Login(context.Background(), tr, Credentials{Username: "user@example.com", Password: "hunter2"})
	if err == nil {
		t.Fatal("Login() should fail without a token")
	}

	reason, ok := AuthReasonOf(err)
	if !ok {
		t.Fatalf("Login() error should be auth error, got %T: %v", err, err)
	}
	if reason != AuthLoginFailed {
		t.Errorf("Reason = %v, want %v", reason, AuthLoginFailed)
	}
}

func TestV2Login_UnsupportedRole(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"jwt-abc","expiresAt":"2031-12-01T16:45:00.000Z","role":"999","messageId":1}`))
	}))
	defer server.Close()

	tr := NewTransport(V2)
	tr.SetBaseURL(server.URL)
	tr.SetRequestSpacing(0)

	adapter := &v2Adapter{}
	_, err := adapter.Login(context.Background(), tr, Credentials{Username: "user@example.com", Password: "hunter2"})
	if err == nil {
		t.Fatal("Login() should fail on an unsupported role")
	}

	reason, ok := AuthReasonOf(err)
	if !ok {
		t.Fatalf("Login() error should be auth error, got %T: %v", err, err)
	}
	if reason != AuthUnsupportedRole {
		t.Errorf("Reason = %v, want %v", reason, AuthUnsupportedRole)
	}
}

func TestV2ListDevices(t *testing.T) {
	var receivedAuth string

	mux := http.NewServeMux()
	mux.HandleFunc(v2PathLogin, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mockV2Login))
	})
	mux.HandleFunc(v2PathModules, func(w http.ResponseWriter, r *http.Request) {
		receivedAuth = r.Header.Get("Authorization")
		w.Write([]byte(mockV2Modules))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	mgr := newTestManager(t, V2, server.URL)

	adapter := &v2Adapter{}
	devices, err := adapter.ListDevices(context.Background(), mgr)
	if err != nil {
		t.Fatalf("ListDevices() error = %v, want nil", err)
	}

	if receivedAuth != "Bearer jwt-abc" {
		t.Errorf("Authorization = %s, want Bearer jwt-abc", receivedAuth)
	}

	if len(devices) != 1 {
		t.Fatalf("Device count = %d, want 1", len(devices))
	}

	// Numeric wire identifiers become the canonical string form
	if devices[0].ModuleID != "10021" {
		t.Errorf("ModuleID = %s, want 10021", devices[0].ModuleID)
	}
	if devices[0].UnitID != "1" {
		t.Errorf("UnitID = %s, want 1", devices[0].UnitID)
	}
	if devices[0].ID() != "10021_1" {
		t.Errorf("ID() = %s, want 10021_1", devices[0].ID())
	}
	if devices[0].ModuleName != "Heat Pump Home" {
		t.Errorf("ModuleName = %s, want Heat Pump Home", devices[0].ModuleName)
	}
}

func TestV2ListDevices_MissingModules(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(v2PathLogin, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mockV2Login))
	})
	mux.HandleFunc(v2PathModules, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"OK"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	mgr := newTestManager(t, V2, server.URL)

	adapter := &v2Adapter{}
	_, err := adapter.ListDevices(context.Background(), mgr)
	if err == nil {
		t.Fatal("ListDevices() should fail when the module list is missing")
	}
	if !IsParseError(err) {
		t.Errorf("ListDevices() error should be parse error, got %T: %v", err, err)
	}
}

func TestV2DeviceInfo(t *testing.T) {
	var receivedQuery url.Values

	mux := http.NewServeMux()
	mux.HandleFunc(v2PathLogin, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mockV2Login))
	})
	mux.HandleFunc(v2PathPumpInfo, func(w http.ResponseWriter, r *http.Request) {
		receivedQuery = r.URL.Query()
		w.Write([]byte(mockV2PumpInfo))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	mgr := newTestManager(t, V2, server.URL)

	adapter := &v2Adapter{}
	info, err := adapter.DeviceInfo(context.Background(), mgr, DeviceRef{ModuleID: "10021", UnitID: "1"})
	if err != nil {
		t.Fatalf("DeviceInfo() error = %v, want nil", err)
	}

	if receivedQuery.Get("moduleid") != "10021" {
		t.Errorf("Query moduleid = %s, want 10021", receivedQuery.Get("moduleid"))
	}
	if receivedQuery.Get("unitid") != "1" {
		t.Errorf("Query unitid = %s, want 1", receivedQuery.Get("unitid"))
	}

	if info.Version != V2 {
		t.Errorf("Version = %v, want %v", info.Version, V2)
	}
	if info.Fields["given_name"] != "John" {
		t.Errorf("given_name = %v, want John", info.Fields["given_name"])
	}

	// The current backend uses native JSON types
	if lat, ok := info.Fields["latitude"].(float64); !ok || lat != 49.5 {
		t.Errorf("latitude = %v (%T), want 49.5 as a number", info.Fields["latitude"], info.Fields["latitude"])
	}
}

func TestV2DeviceData(t *testing.T) {
	var receivedQuery url.Values

	mux := http.NewServeMux()
	mux.HandleFunc(v2PathLogin, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mockV2Login))
	})
	mux.HandleFunc(v2PathPumpData, func(w http.ResponseWriter, r *http.Request) {
		receivedQuery = r.URL.Query()
		w.Write([]byte(mockV2PumpData))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	mgr := newTestManager(t, V2, server.URL)

	adapter := &v2Adapter{}
	data, err := adapter.DeviceData(context.Background(), mgr, DeviceRef{ModuleID: "10021", UnitID: "1"}, 1659990000)
	if err != nil {
		t.Fatalf("DeviceData() error = %v, want nil", err)
	}

	if receivedQuery.Get("moduleId") != "10021" {
		t.Errorf("Query moduleId = %s, want 10021", receivedQuery.Get("moduleId"))
	}
	if receivedQuery.Get("deviceId") != "1" {
		t.Errorf("Query deviceId = %s, want 1", receivedQuery.Get("deviceId"))
	}
	if receivedQuery.Get("lastUpdateTime") != "1659990000" {
		t.Errorf("Query lastUpdateTime = %s, want 1659990000", receivedQuery.Get("lastUpdateTime"))
	}
	if receivedQuery.Get("messageId") != "1" {
		t.Errorf("Query messageId = %s, want 1", receivedQuery.Get("messageId"))
	}
	if receivedQuery.Get("fullRange") != "true" {
		t.Errorf("Query fullRange = %s, want true", receivedQuery.Get("fullRange"))
	}

	if data.Timestamp != 1660000000 {
		t.Errorf("Timestamp = %d, want 1660000000", data.Timestamp)
	}
	if data.Registers["A_3"] != "4.2" {
		t.Errorf("A_3 = %s, want 4.2", data.Registers["A_3"])
	}
}

func TestV2DeviceData_DeltaWithNoChanges(t *testing.T) {
	body := `{"error":{"errorId":0,"errorMessage":""},"messageId":1,"timestamp":1660000100,"data":{}}`

	mux := http.NewServeMux()
	mux.HandleFunc(v2PathLogin, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mockV2Login))
	})
	mux.HandleFunc(v2PathPumpData, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	mgr := newTestManager(t, V2, server.URL)

	adapter := &v2Adapter{}
	data, err := adapter.DeviceData(context.Background(), mgr, DeviceRef{ModuleID: "10021", UnitID: "1"}, 1660000000)
	if err != nil {
		t.Fatalf("DeviceData() error = %v, want nil for an empty delta", err)
	}

	if len(data.Registers) != 0 {
		t.Errorf("Register count = %d, want 0", len(data.Registers))
	}
}

package mastertherm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const mockLoginV1 = `{"returncode":0,"message":"successfully logged in","role":"400","modules":[{"id":"1234","module_name":"Heat Pump Home","config":[{"mb_addr":"1","mb_name":"Module 1"}]}]}`

const mockLoginV1Bad = `{"returncode":1,"message":"incorrect password","modules":[]}`

const mockInfoV1 = `{"returncode":0,"message":"OK","moduleid":"1234","givenname":"John","surname":"Doe","localization":"CZ","lang":"en","city":"Springfield","password9":"49.5","password10":"18.2","type":"AQI","regulation":"pco5","exp":"0","output":"8","reservation":"0","notes":"call before visit"}`

const mockDataV1 = `{"error":{"errorId":0,"errorMessage":""},"messageId":1,"timestamp":1660000000,"data":{"varfile_mt1_config1":{"001":{"D_3":"1","A_3":"4.2","A_500":"46.2"}}}}`

const mockLoginV2 = `{"token":"jwt-abc","expiresAt":"2031-12-01T16:45:00.000Z","role":"400","messageId":1}`

const mockModulesV2 = `{"message":"OK","data":{"modules":[{"id":10021,"name":"Heat Pump Home","things":[{"mb_addr":1,"mb_name":"Module 1"}]},{"id":10022,"name":"Heat Pump Cottage","things":[{"mb_addr":1,"mb_name":"Module 1"}]}]}}`

const mockInfoV2 = `{"message":"OK","data":{"moduleid":10021,"type":"AQI","given_name":"John","surname":"Doe","country":"CZ","language":"en","city":"Springfield","latitude":49.5,"longitude":18.2,"exp":0,"output":8,"regulation":"pco5","reservation":false,"notes":"call before visit"}}`

const mockDataV2 = `{"error":{"errorId":0,"errorMessage":""},"messageId":1,"timestamp":1660000000,"data":{"varFileData":{"001":{"D_3":"1","A_3":"4.2","A_500":"46.2","I_11":"2189"}}}}`

const mockDataDeltaV2 = `{"error":{"errorId":0,"errorMessage":""},"messageId":1,"timestamp":1660000600,"data":{"varFileData":{"001":{"A_500":"40.7"}}}}`

// v2Counts tracks how often each endpoint of the mock backend was hit.
type v2Counts struct {
	logins, modules, infos, datas int
}

func newV2Server(t *testing.T, counts *v2Counts) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		counts.logins++
		w.Write([]byte(mockLoginV2))
	})
	mux.HandleFunc("/api/v1/modules", func(w http.ResponseWriter, r *http.Request) {
		counts.modules++
		w.Write([]byte(mockModulesV2))
	})
	mux.HandleFunc("/api/v1/hp_info", func(w http.ResponseWriter, r *http.Request) {
		counts.infos++
		w.Write([]byte(mockInfoV2))
	})
	mux.HandleFunc("/api/v1/hp_data", func(w http.ResponseWriter, r *http.Request) {
		counts.datas++
		w.Write([]byte(mockDataV2))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, version APIVersion, baseURL string) *Client {
	t.Helper()

	client, err := NewClient("user@example.com", "hunter2", version)
	if err != nil {
		t.Fatalf("NewClient() error = %v, want nil", err)
	}
	client.SetBaseURL(baseURL)
	client.SetRequestSpacing(0)
	return client
}

func TestNewClient_EmptyCredentials(t *testing.T) {
	if _, err := NewClient("", "hunter2", V2); err == nil {
		t.Error("NewClient() should reject an empty username")
	}
	if _, err := NewClient("user@example.com", "", V2); err == nil {
		t.Error("NewClient() should reject an empty password")
	}
}

func TestNewClient_UnknownVersion(t *testing.T) {
	if _, err := NewClient("user@example.com", "hunter2", APIVersion(9)); err == nil {
		t.Error("NewClient() should reject an unknown api version")
	}
}

func TestClientConnect_LoginHappensOnce(t *testing.T) {
	var counts v2Counts
	server := newV2Server(t, &counts)
	client := newTestClient(t, V2, server.URL)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v, want nil", err)
	}
	if _, err := client.ListDevices(context.Background()); err != nil {
		t.Fatalf("ListDevices() error = %v, want nil", err)
	}

	if counts.logins != 1 {
		t.Errorf("login count = %d, want 1", counts.logins)
	}
	if counts.modules != 1 {
		t.Errorf("modules count = %d, want 1", counts.modules)
	}
}

func TestClientListDevices(t *testing.T) {
	var counts v2Counts
	server := newV2Server(t, &counts)
	client := newTestClient(t, V2, server.URL)

	devices, err := client.ListDevices(context.Background())
	if err != nil {
		t.Fatalf("ListDevices() error = %v, want nil", err)
	}

	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}
	if devices[0].ID() != "10021_1" {
		t.Errorf("devices[0].ID() = %s, want 10021_1", devices[0].ID())
	}
	if devices[0].ModuleName != "Heat Pump Home" {
		t.Errorf("ModuleName = %q, want Heat Pump Home", devices[0].ModuleName)
	}
	if devices[1].ID() != "10022_1" {
		t.Errorf("devices[1].ID() = %s, want 10022_1", devices[1].ID())
	}
}

func TestClientGetDeviceInfo(t *testing.T) {
	var counts v2Counts
	server := newV2Server(t, &counts)
	client := newTestClient(t, V2, server.URL)

	info, err := client.GetDeviceInfo(context.Background(), DeviceRef{ModuleID: "10021", UnitID: "1"})
	if err != nil {
		t.Fatalf("GetDeviceInfo() error = %v, want nil", err)
	}

	if info.Name != "John" || info.Surname != "Doe" {
		t.Errorf("owner = %s %s, want John Doe", info.Name, info.Surname)
	}
	if info.PumpType != "AQI" {
		t.Errorf("PumpType = %q, want AQI", info.PumpType)
	}
	if info.Latitude != "49.5" {
		t.Errorf("Latitude = %q, want 49.5", info.Latitude)
	}
	if info.Notes != "call before visit" {
		t.Errorf("Notes = %q, want call before visit", info.Notes)
	}
}

func TestClientGetDeviceData(t *testing.T) {
	var counts v2Counts
	server := newV2Server(t, &counts)
	client := newTestClient(t, V2, server.URL)

	data, err := client.GetDeviceData(context.Background(), DeviceRef{ModuleID: "10021", UnitID: "1"})
	if err != nil {
		t.Fatalf("GetDeviceData() error = %v, want nil", err)
	}

	if data.Ref.ID() != "10021_1" {
		t.Errorf("Ref.ID() = %s, want 10021_1", data.Ref.ID())
	}
	if on := data.Points["on"]; !on.Bool {
		t.Errorf("on = %+v, want true", on)
	}
	if outside := data.Points["outside_temp"]; outside.Float != 4.2 {
		t.Errorf("outside_temp = %+v, want 4.2", outside)
	}
	if requested := data.Points["requested_temp"]; requested.Float != 46.2 {
		t.Errorf("requested_temp = %+v, want 46.2", requested)
	}
	if !data.UpdatedAt.Equal(time.Unix(1660000000, 0)) {
		t.Errorf("UpdatedAt = %v, want %v", data.UpdatedAt, time.Unix(1660000000, 0).UTC())
	}
}

func TestClientGetDeviceRegisters(t *testing.T) {
	var counts v2Counts
	server := newV2Server(t, &counts)
	client := newTestClient(t, V2, server.URL)

	dump, err := client.GetDeviceRegisters(context.Background(), DeviceRef{ModuleID: "10021", UnitID: "1"})
	if err != nil {
		t.Fatalf("GetDeviceRegisters() error = %v, want nil", err)
	}

	if got := dump["A_500"]; got != "46.2" {
		t.Errorf("dump[A_500] = %q, want 46.2", got)
	}
	if got := dump["I_11"]; got != "2189" {
		t.Errorf("dump[I_11] = %q, want 2189", got)
	}
}

func TestClientRefreshDeviceData(t *testing.T) {
	var deltaRequests []string

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mockLoginV2))
	})
	mux.HandleFunc("/api/v1/hp_data", func(w http.ResponseWriter, r *http.Request) {
		since := r.URL.Query().Get("lastUpdateTime")
		if since == "0" {
			w.Write([]byte(mockDataV2))
			return
		}
		deltaRequests = append(deltaRequests, since)
		w.Write([]byte(mockDataDeltaV2))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, V2, server.URL)
	ref := DeviceRef{ModuleID: "10021", UnitID: "1"}

	first, err := client.GetDeviceData(context.Background(), ref)
	if err != nil {
		t.Fatalf("GetDeviceData() error = %v, want nil", err)
	}
	refreshed, err := client.RefreshDeviceData(context.Background(), first)
	if err != nil {
		t.Fatalf("RefreshDeviceData() error = %v, want nil", err)
	}

	if len(deltaRequests) != 1 || deltaRequests[0] != "1660000000" {
		t.Errorf("delta requests = %v, want [1660000000]", deltaRequests)
	}

	// Changed register applied, everything else carried over
	if requested := refreshed.Points["requested_temp"]; requested.Float != 40.7 {
		t.Errorf("requested_temp = %+v, want 40.7", requested)
	}
	if on := refreshed.Points["on"]; !on.Bool {
		t.Errorf("on = %+v, want true", on)
	}
	if got := refreshed.Registers["A_3"]; got != "4.2" {
		t.Errorf("Registers[A_3] = %q, want 4.2", got)
	}
	if !refreshed.UpdatedAt.Equal(time.Unix(1660000600, 0)) {
		t.Errorf("UpdatedAt = %v, want %v", refreshed.UpdatedAt, time.Unix(1660000600, 0).UTC())
	}

	// The previous snapshot is not mutated
	if requested := first.Points["requested_temp"]; requested.Float != 46.2 {
		t.Errorf("previous requested_temp = %+v, want 46.2", requested)
	}
	if got := first.Registers["A_500"]; got != "46.2" {
		t.Errorf("previous Registers[A_500] = %q, want 46.2", got)
	}
}

func TestClientRefreshDeviceData_NoPrevious(t *testing.T) {
	var counts v2Counts
	server := newV2Server(t, &counts)
	client := newTestClient(t, V2, server.URL)

	if _, err := client.RefreshDeviceData(context.Background(), nil); err == nil {
		t.Error("RefreshDeviceData() should fail without a previous snapshot")
	}
	if counts.datas != 0 {
		t.Errorf("data count = %d, want 0", counts.datas)
	}
}

func TestClientV1EndToEnd(t *testing.T) {
	var dataForm map[string][]string

	mux := http.NewServeMux()
	mux.HandleFunc("/plugins/mastertherm_login/client_login.php", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "sess-1", Expires: time.Now().Add(time.Hour)})
		w.Write([]byte(mockLoginV1))
	})
	mux.HandleFunc("/plugins/get_pumpinfo/get_pumpinfo.php", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mockInfoV1))
	})
	mux.HandleFunc("/mt/PassiveVizualizationServlet", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		dataForm = r.PostForm
		w.Write([]byte(mockDataV1))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, V1, server.URL)

	devices, err := client.ListDevices(context.Background())
	if err != nil {
		t.Fatalf("ListDevices() error = %v, want nil", err)
	}
	if len(devices) != 1 || devices[0].ID() != "1234_1" {
		t.Fatalf("devices = %+v, want one device 1234_1", devices)
	}

	info, err := client.GetDeviceInfo(context.Background(), devices[0].DeviceRef)
	if err != nil {
		t.Fatalf("GetDeviceInfo() error = %v, want nil", err)
	}
	if info.Latitude != "49.5" {
		t.Errorf("Latitude = %q, want 49.5", info.Latitude)
	}

	data, err := client.GetDeviceData(context.Background(), devices[0].DeviceRef)
	if err != nil {
		t.Fatalf("GetDeviceData() error = %v, want nil", err)
	}
	if requested := data.Points["requested_temp"]; requested.Float != 46.2 {
		t.Errorf("requested_temp = %+v, want 46.2", requested)
	}

	if got := dataForm["moduleId"]; len(got) != 1 || got[0] != "1234" {
		t.Errorf("form moduleId = %v, want [1234]", got)
	}
}

func TestClientBadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mockLoginV1Bad))
	}))
	defer server.Close()

	client := newTestClient(t, V1, server.URL)

	err := client.Connect(context.Background())
	if err == nil {
		t.Fatal("Connect() should fail with rejected credentials")
	}
	if reason, ok := AuthReasonOf(err); !ok || reason != AuthInvalidCredentials {
		t.Errorf("AuthReasonOf() = %v, %v; want %v, true", reason, ok, AuthInvalidCredentials)
	}
	if !strings.Contains(err.Error(), "connect") {
		t.Errorf("error %q should name the operation", err)
	}
}

func TestClientErrorKindSurvivesWrapping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mockLoginV2))
	})
	mux.HandleFunc("/api/v1/hp_data", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, V2, server.URL)

	_, err := client.GetDeviceData(context.Background(), DeviceRef{ModuleID: "10021", UnitID: "1"})
	if err == nil {
		t.Fatal("GetDeviceData() should fail when the backend is down")
	}
	if !IsHTTPError(err) {
		t.Errorf("IsHTTPError() = false for %v, want true", err)
	}
	if !IsRetryable(err) {
		t.Errorf("IsRetryable() = false for %v, want true", err)
	}
	if !strings.Contains(err.Error(), "get device data 10021_1") {
		t.Errorf("error %q should name the operation and device", err)
	}
}

func TestClientRequestSpacing(t *testing.T) {
	var counts v2Counts
	server := newV2Server(t, &counts)

	client, err := NewClient("user@example.com", "hunter2", V2)
	if err != nil {
		t.Fatalf("NewClient() error = %v, want nil", err)
	}
	client.SetBaseURL(server.URL)
	client.SetRequestSpacing(50 * time.Millisecond)

	ref := DeviceRef{ModuleID: "10021", UnitID: "1"}
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.GetDeviceRegisters(context.Background(), ref); err != nil {
			t.Fatalf("GetDeviceRegisters() error = %v, want nil", err)
		}
	}
	elapsed := time.Since(start)

	// Login plus three data calls behind a 50ms gate
	if elapsed < 150*time.Millisecond {
		t.Errorf("3 calls finished in %v, want at least 150ms of spacing", elapsed)
	}
}

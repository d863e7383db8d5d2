// Mockcloud is an offline stand-in for the Mastertherm cloud service.
//
// It serves both backend generations from one listener, so the CLI and the
// watch dashboard can be exercised without vendor credentials:
//
//	go run ./tools/mockcloud
//	mastertherm-cli devices -a v2 --base-url http://127.0.0.1:8700 -u demo -p demo
//	mastertherm-cli watch -a v1 --base-url http://127.0.0.1:8700 -u demo -p demo --poll 10s
//
// Any non-empty credentials are accepted. Register values drift between
// polls so dashboards show movement, and incremental fetches return only
// the registers changed since the client's lastUpdateTime. Sessions expire
// like the real backends do, which exercises the client's silent re-login.
//
// Set MASTERTHERM_LOG_LEVEL=debug to see per-request logs.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/mastertherm/internal/logging"
)

const (
	v1SessionTTL = 10 * time.Minute
	v2SessionTTL = 1 * time.Hour
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8700", "listen address")
	flag.Parse()

	if err := logging.Initialize("info"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	srv := newMockServer()

	mux := http.NewServeMux()
	mux.HandleFunc("/plugins/mastertherm_login/client_login.php", srv.v1Login)
	mux.HandleFunc("/plugins/get_pumpinfo/get_pumpinfo.php", srv.v1PumpInfo)
	mux.HandleFunc("/mt/PassiveVizualizationServlet", srv.v1PumpData)
	mux.HandleFunc("/api/v1/auth/login", srv.v2Login)
	mux.HandleFunc("/api/v1/modules", srv.v2Modules)
	mux.HandleFunc("/api/v1/hp_info", srv.v2PumpInfo)
	mux.HandleFunc("/api/v1/hp_data", srv.v2PumpData)

	logging.Info("Mock cloud listening",
		zap.String("addr", *addr),
		zap.String("v1_module", "1234_1"),
		zap.String("v2_modules", "10021_1, 10022_1"),
	)
	fmt.Printf("Mock Mastertherm cloud on http://%s (both generations, any non-empty credentials)\n", *addr)

	if err := http.ListenAndServe(*addr, logRequests(mux)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.Debug("Request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// mockServer holds the simulated account: issued sessions plus one drifting
// controller state per module.
type mockServer struct {
	sessions *sessionStore

	mu    sync.Mutex
	pumps map[string]*pumpState
}

func newMockServer() *mockServer {
	return &mockServer{
		sessions: newSessionStore(),
		pumps:    make(map[string]*pumpState),
	}
}

func (s *mockServer) pump(moduleID string) *pumpState {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pumps[moduleID]
	if !ok {
		p = newPumpState()
		s.pumps[moduleID] = p
	}
	return p
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to encode response", zap.Error(err))
	}
}

// v1 handlers: form-encoded POSTs against the PHP application, session in
// the PHPSESSID cookie.

func (s *mockServer) v1Login(w http.ResponseWriter, r *http.Request) {
	if r.FormValue("uname") == "" || r.FormValue("upwd") == "" {
		writeJSON(w, map[string]any{
			"returncode": 1,
			"message":    "Incorrect username or password",
		})
		return
	}

	token := s.sessions.issue("php", v1SessionTTL)
	http.SetCookie(w, &http.Cookie{
		Name:    "PHPSESSID",
		Value:   token,
		Path:    "/",
		Expires: time.Now().Add(v1SessionTTL),
	})
	writeJSON(w, map[string]any{
		"returncode": 0,
		"message":    "successfully logged in",
		"role":       "400",
		"modules": []map[string]any{
			{
				"id":          "1234",
				"module_name": "Farmhouse heat pump",
				"config": []map[string]any{
					{"mb_addr": "1", "mb_name": "Module 1"},
				},
			},
		},
	})
}

func (s *mockServer) v1SessionOK(r *http.Request) bool {
	c, err := r.Cookie("PHPSESSID")
	return err == nil && s.sessions.valid(c.Value)
}

func (s *mockServer) v1PumpInfo(w http.ResponseWriter, r *http.Request) {
	if !s.v1SessionOK(r) {
		writeJSON(w, map[string]any{"returncode": 2, "message": "not logged in"})
		return
	}

	writeJSON(w, map[string]any{
		"returncode":   0,
		"message":      "OK",
		"givenname":    "Anna",
		"surname":      "Novak",
		"localization": "CZ",
		"lang":         "cs",
		"type":         "AQI",
		"regulation":   "pco5",
		"exp":          "0",
		"output":       "8",
		"reservation":  "0",
		"city":         "Brno",
		"password9":    "49.2",
		"password10":   "16.6",
		"notes":        "",
	})
}

func (s *mockServer) v1PumpData(w http.ResponseWriter, r *http.Request) {
	if !s.v1SessionOK(r) {
		writeEnvelope(w, "", "", nil, time.Now().Unix(), 9, "invalid token")
		return
	}

	moduleID := r.FormValue("moduleId")
	unitID := r.FormValue("deviceId")
	last, _ := strconv.ParseInt(r.FormValue("lastUpdateTime"), 10, 64)

	pump := s.pump(moduleID)
	pump.advance()
	regs, ts := pump.since(last)
	writeEnvelope(w, "varfile_mt1_config1", unitKey(unitID), regs, ts, 0, "")
}

// v2 handlers: JSON REST with a bearer token. A missing or stale token gets
// a plain 401, matching the current backend.

func (s *mockServer) v2Login(w http.ResponseWriter, r *http.Request) {
	if r.FormValue("username") == "" || r.FormValue("password") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(w, map[string]any{
			"error": map[string]any{"errorId": 1, "errorMessage": "Incorrect username or password"},
		})
		return
	}

	token := s.sessions.issue("bearer", v2SessionTTL)
	writeJSON(w, map[string]any{
		"token":     token,
		"expiresAt": time.Now().Add(v2SessionTTL).Format(time.RFC3339),
		"role":      "400",
		"messageId": 1,
	})
}

func (s *mockServer) v2SessionOK(r *http.Request) bool {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, prefix) && s.sessions.valid(strings.TrimPrefix(auth, prefix))
}

func (s *mockServer) v2Modules(w http.ResponseWriter, r *http.Request) {
	if !s.v2SessionOK(r) {
		http.Error(w, `{"message":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	writeJSON(w, map[string]any{
		"message": "OK",
		"data": map[string]any{
			"modules": []map[string]any{
				{
					"id":   10021,
					"name": "Lakehouse heat pump",
					"things": []map[string]any{
						{"mb_addr": 1, "mb_name": "Module 1"},
					},
				},
				{
					"id":   10022,
					"name": "Workshop heat pump",
					"things": []map[string]any{
						{"mb_addr": 1, "mb_name": "Module 1"},
					},
				},
			},
		},
	})
}

func (s *mockServer) v2PumpInfo(w http.ResponseWriter, r *http.Request) {
	if !s.v2SessionOK(r) {
		http.Error(w, `{"message":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	moduleID, _ := strconv.Atoi(r.URL.Query().Get("moduleid"))
	writeJSON(w, map[string]any{
		"message": "OK",
		"data": map[string]any{
			"moduleid":    moduleID,
			"type":        "AQI",
			"given_name":  "Anna",
			"surname":     "Novak",
			"country":     "CZ",
			"language":    "en",
			"city":        "Brno",
			"latitude":    49.2,
			"longitude":   16.6,
			"exp":         0,
			"output":      8,
			"regulation":  "pco5",
			"reservation": false,
			"notes":       "",
		},
	})
}

func (s *mockServer) v2PumpData(w http.ResponseWriter, r *http.Request) {
	if !s.v2SessionOK(r) {
		http.Error(w, `{"message":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}

	query := r.URL.Query()
	moduleID := query.Get("moduleId")
	unitID := query.Get("deviceId")
	last, _ := strconv.ParseInt(query.Get("lastUpdateTime"), 10, 64)

	pump := s.pump(moduleID)
	pump.advance()
	regs, ts := pump.since(last)
	writeEnvelope(w, "varFileData", unitKey(unitID), regs, ts, 0, "")
}

// writeEnvelope emits the shared data envelope of both generations
func writeEnvelope(w http.ResponseWriter, varfileKey, unit string, regs map[string]string, ts int64, errorID int, errMsg string) {
	body := map[string]any{
		"error":     map[string]any{"errorId": errorID, "errorMessage": errMsg},
		"messageId": 1,
		"timestamp": ts,
	}
	if errorID == 0 {
		body["data"] = map[string]any{
			varfileKey: map[string]any{unit: regs},
		}
	} else {
		body["data"] = map[string]any{}
	}
	writeJSON(w, body)
}

// unitKey zero-pads a unit id to the three-digit varfile key
func unitKey(unitID string) string {
	if unitID == "" {
		unitID = "1"
	}
	for len(unitID) < 3 {
		unitID = "0" + unitID
	}
	return unitID
}

// sessionStore tracks issued session tokens and their expiry
type sessionStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	serial int
}

func newSessionStore() *sessionStore {
	return &sessionStore{tokens: make(map[string]time.Time)}
}

func (s *sessionStore) issue(kind string, ttl time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.serial++
	token := fmt.Sprintf("mock-%s-%06d", kind, s.serial)
	s.tokens[token] = time.Now().Add(ttl)
	return token
}

func (s *sessionStore) valid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.tokens[token]
	return ok && time.Now().Before(expiry)
}

// pumpState simulates one controller. Every advance stamps the registers it
// touches, so incremental fetches can return exactly the changed subset.
type pumpState struct {
	mu        sync.Mutex
	registers map[string]string
	changedAt map[string]int64
	timestamp int64
	ticks     int
}

// tempDrift cycles a register value through small offsets around its base
var tempDrift = []float64{0, 0.1, 0.3, 0.4, 0.3, 0.1, 0, -0.2, -0.3, -0.2}

func newPumpState() *pumpState {
	p := &pumpState{
		registers: make(map[string]string),
		changedAt: make(map[string]int64),
		timestamp: time.Now().Unix(),
	}

	seed := map[string]string{
		// Operating state
		"D_3": "1", "D_4": "0", "D_5": "1", "D_32": "0",
		"D_6": "0", "D_7": "0", "D_8": "0", "D_10": "1",
		"D_15": "0", "D_20": "0", "D_29": "0",
		"D_66": "1", "D_275": "1",

		// Temperatures
		"A_1": "41.5", "A_3": "4.2", "A_5": "38.1",
		"A_126": "46.1", "A_129": "47.0", "A_500": "46.2",

		// Mode and counters
		"I_51": "1", "I_11": "2189", "I_12": "764",
		"I_13": "3412", "I_14": "12", "I_15": "0",

		// Pad a spells "HW-AN-" and is enabled
		"I_211": "8", "I_212": "23", "I_213": "37",
		"I_214": "1", "I_215": "14", "I_216": "37",
		"D_212": "1",

		// Pad b spells "EN 2" but is switched off
		"I_221": "5", "I_222": "14", "I_223": "39",
		"I_224": "29", "I_225": "0", "I_226": "0",
		"D_213": "0",

		// Pads c..f are not configured
		"I_231": "0", "I_232": "0", "I_233": "0",
		"I_234": "0", "I_235": "0", "I_236": "0",
		"D_214": "0",

		// Registers the client has no mapping for
		"I_418": "0", "A_188": "2.1", "D_242": "0",
		"I_104": "6", "A_75": "0.5",
	}
	for name, value := range seed {
		p.registers[name] = value
		p.changedAt[name] = p.timestamp
	}
	return p
}

// advance moves the simulation one step: temperatures wander, the run-time
// counter accumulates, the compressor cycles.
func (p *pumpState) advance() {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Nothing changes faster than once a second; the envelope timestamp has
	// one-second resolution and deltas rely on it
	now := time.Now().Unix()
	if now <= p.timestamp {
		return
	}
	p.timestamp = now
	p.ticks++

	drift := tempDrift[p.ticks%len(tempDrift)]
	p.set("A_3", formatTemp(4.2+drift), now)
	p.set("A_1", formatTemp(41.5+2*drift), now)

	if p.ticks%3 == 0 {
		p.bump("I_11", now)
	}
	if p.ticks%5 == 0 {
		if p.registers["D_5"] == "1" {
			p.set("D_5", "0", now)
		} else {
			p.set("D_5", "1", now)
			p.bump("I_12", now)
		}
	}
}

func (p *pumpState) set(name, value string, now int64) {
	if p.registers[name] == value {
		return
	}
	p.registers[name] = value
	p.changedAt[name] = now
}

func (p *pumpState) bump(name string, now int64) {
	n, err := strconv.Atoi(p.registers[name])
	if err != nil {
		return
	}
	p.set(name, strconv.Itoa(n+1), now)
}

// since returns the registers changed after last (all of them for last == 0)
// together with the current snapshot timestamp.
func (p *pumpState) since(last int64) (map[string]string, int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]string)
	for name, value := range p.registers {
		if last == 0 || p.changedAt[name] > last {
			out[name] = value
		}
	}
	return out, p.timestamp
}

func formatTemp(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

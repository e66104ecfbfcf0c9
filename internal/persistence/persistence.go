// Package persistence implements the blocking REST adapter (C8): bulk load
// on startup, incremental write-back, and token verification against the
// external backend. Every call is best-effort — a failure is logged and
// the caller gets an empty result, never a crash.
package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/crypto/blake2b"

	"github.com/bizkut/cybrelink/internal/logging"
	"github.com/bizkut/cybrelink/internal/session"
	"github.com/bizkut/cybrelink/internal/world"
)

// Config configures one backend connection.
type Config struct {
	BaseURL       string
	AnonKey       string
	Timeout       time.Duration
	TokenCacheTTL time.Duration
}

// DefaultTimeout is the per-call HTTP timeout when Config.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// DefaultTokenCacheTTL is how long a verified token stays cached.
const DefaultTokenCacheTTL = 5 * time.Minute

// Client is the sole door between the server process and the persisted
// player/computer/mission tables.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *logging.Router

	tokenMu sync.Mutex
	tokens  map[[blake2b.Size256]byte]tokenCacheEntry
}

type tokenCacheEntry struct {
	authID  string
	expires time.Time
}

// New constructs a client. An empty BaseURL makes every method a no-op that
// returns an empty/false result without logging — the world then starts and stays
// empty, exactly as §4.8 specifies for an unconfigured backend.
func New(cfg Config, log *logging.Router) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TokenCacheTTL <= 0 {
		cfg.TokenCacheTTL = DefaultTokenCacheTTL
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
		tokens:     make(map[[blake2b.Size256]byte]tokenCacheEntry),
	}
}

// Enabled reports whether a backend URL was configured.
func (c *Client) Enabled() bool {
	return strings.TrimSpace(c.cfg.BaseURL) != ""
}

func (c *Client) warn(format string, args ...any) {
	if c.log == nil {
		return
	}
	c.log.Publish(logging.Event{
		Severity: logging.SeverityWarn,
		Category: logging.CategoryPersistence,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (c *Client) info(format string, args ...any) {
	if c.log == nil {
		return
	}
	c.log.Publish(logging.Event{
		Severity: logging.SeverityInfo,
		Category: logging.CategoryPersistence,
		Message:  fmt.Sprintf(format, args...),
	})
}

// do performs one REST call against path, marshaling body (if non-nil) as
// the request payload and unmarshaling the response into out (if non-nil).
// bearer overrides the anon key when a caller-specific token applies.
func (c *Client) do(method, path, bearer string, body any, out any) error {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + path

	var reqBody io.Reader
	var bodyLen int
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("persistence: marshal request: %w", err)
		}
		bodyLen = len(buf)
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return fmt.Errorf("persistence: build request: %w", err)
	}
	req.Header.Set("apikey", c.cfg.AnonKey)
	if bearer == "" {
		bearer = c.cfg.AnonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")
	if method == http.MethodPost || method == http.MethodPatch || method == http.MethodPut {
		req.Header.Set("Prefer", "return=minimal")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("persistence: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("persistence: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("persistence: %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("persistence: unmarshal response: %w", err)
		}
	}
	c.info("%s %s ok (%s sent, %s received)", method, path, humanize.Bytes(uint64(bodyLen)), humanize.Bytes(uint64(len(respBody))))
	return nil
}

// tokenDigest hashes a raw bearer token so the cache never holds plaintext
// credentials, even transiently.
func tokenDigest(token string) [blake2b.Size256]byte {
	return blake2b.Sum256([]byte(token))
}

// VerifyToken resolves a raw bearer token to its backend auth id, consulting
// the process-wide cache before making a network call.
func (c *Client) VerifyToken(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	digest := tokenDigest(token)

	c.tokenMu.Lock()
	if entry, found := c.tokens[digest]; found && time.Now().Before(entry.expires) {
		c.tokenMu.Unlock()
		return entry.authID, true
	}
	c.tokenMu.Unlock()

	if !c.Enabled() {
		return "", false
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(http.MethodGet, "/auth/v1/user", token, nil, &resp); err != nil {
		c.warn("verify_token failed: %v", err)
		return "", false
	}
	if resp.ID == "" {
		return "", false
	}

	c.tokenMu.Lock()
	c.tokens[digest] = tokenCacheEntry{authID: resp.ID, expires: time.Now().Add(c.cfg.TokenCacheTTL)}
	c.tokenMu.Unlock()
	return resp.ID, true
}

// Login exchanges an email/password pair for a session token.
func (c *Client) Login(email, password string) (token string, ok bool) {
	if !c.Enabled() {
		return "", false
	}
	req := map[string]string{"email": email, "password": password}
	var resp struct {
		Token string `json:"access_token"`
	}
	if err := c.do(http.MethodPost, "/auth/v1/token?grant_type=password", "", req, &resp); err != nil {
		c.warn("login failed: %v", err)
		return "", false
	}
	return resp.Token, resp.Token != ""
}

// SignUp registers a new email/password pair under the given handle,
// returning a session token.
func (c *Client) SignUp(email, password, handle string) (token string, ok bool) {
	if !c.Enabled() {
		return "", false
	}
	req := map[string]string{"email": email, "password": password, "handle": handle}
	var resp struct {
		Token string `json:"access_token"`
	}
	if err := c.do(http.MethodPost, "/auth/v1/signup", "", req, &resp); err != nil {
		c.warn("sign_up failed: %v", err)
		return "", false
	}
	return resp.Token, resp.Token != ""
}

type playerRow struct {
	AuthID            string `json:"auth_id"`
	Handle            string `json:"handle"`
	Credits           int64  `json:"credits"`
	UplinkRating      int16  `json:"uplink_rating"`
	NeuromancerRating int16  `json:"neuromancer_rating"`
}

// GetPlayerProfile fetches one player's persisted profile by auth id.
func (c *Client) GetPlayerProfile(authID string) (session.Profile, bool) {
	if !c.Enabled() {
		return session.Profile{}, false
	}
	var rows []playerRow
	path := fmt.Sprintf("/rest/v1/players?auth_id=eq.%s&select=*", authID)
	if err := c.do(http.MethodGet, path, "", nil, &rows); err != nil {
		c.warn("get_player_profile failed: %v", err)
		return session.Profile{}, false
	}
	if len(rows) == 0 {
		return session.Profile{}, false
	}
	return session.Profile{
		Credits:           rows[0].Credits,
		UplinkRating:      rows[0].UplinkRating,
		NeuromancerRating: rows[0].NeuromancerRating,
	}, true
}

// CreatePlayerProfile inserts a new player row with default stats.
func (c *Client) CreatePlayerProfile(authID, handle string, profile session.Profile) bool {
	if !c.Enabled() {
		return false
	}
	row := playerRow{AuthID: authID, Handle: handle, Credits: profile.Credits, UplinkRating: profile.UplinkRating, NeuromancerRating: profile.NeuromancerRating}
	if err := c.do(http.MethodPost, "/rest/v1/players", "", row, nil); err != nil {
		c.warn("create_player_profile failed: %v", err)
		return false
	}
	return true
}

// UpdatePlayerProfile writes back a player's current profile, used when an
// authenticated session is torn down; the periodic flush does not call it.
func (c *Client) UpdatePlayerProfile(authID string, profile session.Profile) bool {
	if !c.Enabled() {
		return false
	}
	row := map[string]any{
		"credits":            profile.Credits,
		"uplink_rating":      profile.UplinkRating,
		"neuromancer_rating": profile.NeuromancerRating,
	}
	path := fmt.Sprintf("/rest/v1/players?auth_id=eq.%s", authID)
	if err := c.do(http.MethodPatch, path, "", row, nil); err != nil {
		c.warn("update_player_profile failed: %v", err)
		return false
	}
	return true
}

type computerRow struct {
	ID            int32  `json:"id"`
	IP            string `json:"ip"`
	Name          string `json:"name"`
	CompanyID     int32  `json:"company_id"`
	Type          int16  `json:"type"`
	SecurityLevel int16  `json:"security_level"`
	Running       bool   `json:"running"`
}

// GetAllComputers bulk-loads every computer row, used once at startup.
func (c *Client) GetAllComputers() []*world.Computer {
	if !c.Enabled() {
		return nil
	}
	var rows []computerRow
	if err := c.do(http.MethodGet, "/rest/v1/computers?select=*", "", nil, &rows); err != nil {
		c.warn("get_all_computers failed: %v", err)
		return nil
	}
	out := make([]*world.Computer, 0, len(rows))
	for _, r := range rows {
		ip, _ := world.ParseIPv4(r.IP)
		out = append(out, &world.Computer{
			ID:            r.ID,
			IP:            ip,
			IPString:      r.IP,
			Name:          r.Name,
			CompanyID:     r.CompanyID,
			Type:          r.Type,
			SecurityLevel: r.SecurityLevel,
			Running:       r.Running,
		})
	}
	c.info("loaded %s computers", humanize.Comma(int64(len(out))))
	return out
}

// UpdateComputer writes back one computer's mutable fields.
func (c *Client) UpdateComputer(comp *world.Computer) bool {
	if !c.Enabled() {
		return false
	}
	row := map[string]any{"running": comp.Running}
	path := fmt.Sprintf("/rest/v1/computers?id=eq.%d", comp.ID)
	if err := c.do(http.MethodPatch, path, "", row, nil); err != nil {
		c.warn("update_computer failed: %v", err)
		return false
	}
	return true
}

type missionRow struct {
	ID          int32  `json:"id"`
	Type        int16  `json:"type"`
	TargetIP    string `json:"target_ip"`
	EmployerID  int32  `json:"employer_id"`
	Description string `json:"description"`
	Payment     int64  `json:"payment"`
	MaxPayment  int64  `json:"max_payment"`
	Difficulty  int16  `json:"difficulty"`
	MinRating   int16  `json:"min_rating"`
	ClaimedBy   uint32 `json:"claimed_by"`
	Completed   bool   `json:"completed"`
}

func missionFromRow(r missionRow) *world.Mission {
	ip, _ := world.ParseIPv4(r.TargetIP)
	return &world.Mission{
		ID:          r.ID,
		Type:        r.Type,
		TargetIP:    ip,
		EmployerID:  r.EmployerID,
		Description: r.Description,
		Payment:     r.Payment,
		MaxPayment:  r.MaxPayment,
		Difficulty:  r.Difficulty,
		MinRating:   r.MinRating,
		ClaimedBy:   r.ClaimedBy,
		Completed:   r.Completed,
	}
}

// GetAllMissions bulk-loads every mission row, used once at startup.
func (c *Client) GetAllMissions() []*world.Mission {
	if !c.Enabled() {
		return nil
	}
	var rows []missionRow
	if err := c.do(http.MethodGet, "/rest/v1/missions?select=*", "", nil, &rows); err != nil {
		c.warn("get_all_missions failed: %v", err)
		return nil
	}
	out := make([]*world.Mission, 0, len(rows))
	for _, r := range rows {
		out = append(out, missionFromRow(r))
	}
	c.info("loaded %s missions", humanize.Comma(int64(len(out))))
	return out
}

// GetUnclaimedMissions fetches only missions with no claimant, used by
// operators inspecting backend state independent of the in-memory world.
func (c *Client) GetUnclaimedMissions() []*world.Mission {
	if !c.Enabled() {
		return nil
	}
	var rows []missionRow
	if err := c.do(http.MethodGet, "/rest/v1/missions?claimed_by=is.null&completed=eq.false&select=*", "", nil, &rows); err != nil {
		c.warn("get_unclaimed_missions failed: %v", err)
		return nil
	}
	out := make([]*world.Mission, 0, len(rows))
	for _, r := range rows {
		out = append(out, missionFromRow(r))
	}
	return out
}

// UpdateMission writes back one mission's mutable fields.
func (c *Client) UpdateMission(m *world.Mission) bool {
	if !c.Enabled() {
		return false
	}
	row := map[string]any{"claimed_by": m.ClaimedBy, "completed": m.Completed}
	path := fmt.Sprintf("/rest/v1/missions?id=eq.%d", m.ID)
	if err := c.do(http.MethodPatch, path, "", row, nil); err != nil {
		c.warn("update_mission failed: %v", err)
		return false
	}
	return true
}

// ClaimMission records a claim directly with a single write of claimed_by.
// NPC claims do not use it: they mark missions dirty and reach the backend
// through the periodic flush's UpdateMission calls.
func (c *Client) ClaimMission(id int32, claimant uint32) bool {
	if !c.Enabled() {
		return false
	}
	row := map[string]any{"claimed_by": claimant}
	path := fmt.Sprintf("/rest/v1/missions?id=eq.%d", id)
	if err := c.do(http.MethodPatch, path, "", row, nil); err != nil {
		c.warn("claim_mission failed: %v", err)
		return false
	}
	return true
}

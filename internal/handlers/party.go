// Package handlers exposes the party service over HTTP.
package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	engine "github.com/nhiquach/white-elephant-party/engine"
	"github.com/nhiquach/white-elephant-party/internal/auth"
	"github.com/nhiquach/white-elephant-party/internal/config"
	"github.com/nhiquach/white-elephant-party/internal/game"
)

// Handler serves the party API.
type Handler struct {
	svc      *game.Service
	sessions *auth.Issuer
	admin    *AdminHandler // nil disables /api/admin
	origin   string
	log      *logrus.Logger
}

// New creates the API handler. admin may be nil.
func New(svc *game.Service, sessions *auth.Issuer, admin *AdminHandler, allowedOrigin string, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, sessions: sessions, admin: admin, origin: allowedOrigin, log: log}
}

// Routes returns the full API mux wrapped in CORS handling.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/party", h.createParty)
	mux.HandleFunc("GET /api/party/{id}", h.getParty)
	mux.HandleFunc("GET /api/party/{id}/moves", h.getMoves)
	mux.HandleFunc("POST /api/party/{id}/join", h.joinParty)
	mux.HandleFunc("POST /api/party/{id}/register", h.beginRegistration)
	mux.HandleFunc("POST /api/party/{id}/gift", h.registerGift)
	mux.HandleFunc("POST /api/party/{id}/settings", h.updateSettings)
	mux.HandleFunc("POST /api/party/{id}/start", h.startGame)
	mux.HandleFunc("POST /api/party/{id}/open", h.openGift)
	mux.HandleFunc("POST /api/party/{id}/steal", h.stealGift)
	mux.HandleFunc("POST /api/party/{id}/keep", h.keepGift)
	mux.HandleFunc("POST /api/party/{id}/swap", h.swapGift)
	if h.admin != nil {
		h.admin.register(mux)
	}
	return h.cors(mux)
}

func (h *Handler) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", h.origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Admin-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

type sessionResponse struct {
	PartyID  string           `json:"partyId"`
	PlayerID string           `json:"playerId"`
	HostID   string           `json:"hostId,omitempty"`
	Token    string           `json:"token"`
	Party    *game.ClientView `json:"party"`
}

func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request, s *game.Session) {
	token, err := h.sessions.Issue(s.PartyID, s.PlayerID, s.IsHost)
	if err != nil {
		h.writeError(w, r, "Failed to create session", err)
		return
	}
	resp := sessionResponse{PartyID: s.PartyID, PlayerID: s.PlayerID, Token: token, Party: s.View}
	if s.IsHost {
		resp.HostID = s.PlayerID
	}
	writeJSON(w, http.StatusOK, resp)
}

// caller resolves the player a request speaks for from its bearer token.
// The token must belong to the party in the path.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		writeMessage(w, http.StatusUnauthorized, "Session token required")
		return "", false
	}
	claims, err := h.sessions.Parse(raw)
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, "Invalid session token")
		return "", false
	}
	if claims.PartyID != r.PathValue("id") {
		writeMessage(w, http.StatusForbidden, "Session belongs to another party")
		return "", false
	}
	return claims.PlayerID(), true
}

// ---------------------------------------------------------------------------
// Lobby
// ---------------------------------------------------------------------------

func (h *Handler) createParty(w http.ResponseWriter, r *http.Request) {
	var body struct {
		HostName string `json:"hostName"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	name, err := cleanText("Host name", body.HostName, config.MaxNameLength, true)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := h.svc.CreateParty(r.Context(), name)
	if err != nil {
		h.writeError(w, r, "Failed to create party", err)
		return
	}
	h.writeSession(w, r, s)
}

// getParty serves the polling endpoint. With ?since=<lastUpdated> it answers
// 304 when nothing changed.
func (h *Handler) getParty(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.View(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, "Failed to get party", err)
		return
	}
	if since := r.URL.Query().Get("since"); since != "" {
		if ts, err := strconv.ParseInt(since, 10, 64); err == nil && ts >= view.LastUpdated {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) getMoves(w http.ResponseWriter, r *http.Request) {
	playerID, ok := h.caller(w, r)
	if !ok {
		return
	}
	moves, err := h.svc.Moves(r.Context(), r.PathValue("id"), playerID)
	if err != nil {
		h.writeError(w, r, "Failed to get moves", err)
		return
	}
	writeJSON(w, http.StatusOK, moves)
}

func (h *Handler) joinParty(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PlayerName string `json:"playerName"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	name, err := cleanText("Player name", body.PlayerName, config.MaxNameLength, true)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := h.svc.Join(r.Context(), r.PathValue("id"), name)
	if err != nil {
		h.writeError(w, r, "Cannot join party", err)
		return
	}
	h.writeSession(w, r, s)
}

func (h *Handler) beginRegistration(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.caller(w, r)
	if !ok {
		return
	}
	view, err := h.svc.BeginRegistration(r.Context(), r.PathValue("id"), callerID)
	if err != nil {
		h.writeError(w, r, "Not authorized", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) registerGift(w http.ResponseWriter, r *http.Request) {
	playerID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var body struct {
		GiftName        string `json:"giftName"`
		GiftDescription string `json:"giftDescription"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	name, err := cleanText("Gift name", body.GiftName, config.MaxGiftNameLength, true)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	desc, err := cleanText("Gift description", body.GiftDescription, config.MaxDescriptionLength, false)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	view, gift, err := h.svc.RegisterGift(r.Context(), r.PathValue("id"), playerID, name, desc)
	if err != nil {
		h.writeError(w, r, "Cannot register gift", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Gift  *game.GiftReceipt `json:"gift"`
		Party *game.ClientView  `json:"party"`
	}{gift, view})
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var body struct {
		FinalRoundType       *string         `json:"finalRoundType"`
		FinalSwapAllowLocked *bool           `json:"finalSwapAllowLocked"`
		MaxSteals            json.RawMessage `json:"maxSteals"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := h.svc.UpdateSettings(r.Context(), r.PathValue("id"), callerID, settingsFromBody(body.FinalRoundType, body.FinalSwapAllowLocked, body.MaxSteals))
	if err != nil {
		h.writeError(w, r, "Cannot update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// settingsFromBody converts loosely typed JSON into engine.Settings.
// maxSteals may arrive as a number or a string.
func settingsFromBody(roundType *string, allowLocked *bool, maxSteals json.RawMessage) engine.Settings {
	var s engine.Settings
	if roundType != nil {
		t := engine.FinalRoundType(*roundType)
		s.FinalRoundType = &t
	}
	s.FinalSwapAllowLocked = allowLocked
	if len(maxSteals) > 0 {
		raw := maxStealsText(maxSteals)
		s.MaxSteals = &raw
	}
	return s
}

// maxStealsText renders a raw maxSteals value for engine.ClampMaxSteals.
// Numbers are truncated toward zero so exponent forms like 1e3 keep their
// value; strings pass through for leading-integer parsing.
func maxStealsText(raw json.RawMessage) string {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(math.Trunc(f), 'f', 0, 64)
	}
	return string(raw)
}

func (h *Handler) startGame(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.caller(w, r)
	if !ok {
		return
	}
	view, err := h.svc.StartGame(r.Context(), r.PathValue("id"), callerID)
	if err != nil {
		h.writeError(w, r, "Cannot start game", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ---------------------------------------------------------------------------
// Turns
// ---------------------------------------------------------------------------

type giftMove func(r *http.Request, partyID, playerID, giftID string) (*game.ClientView, error)

// giftAction handles the open/steal/swap routes, which share a body shape.
func (h *Handler) giftAction(what string, move giftMove) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, ok := h.caller(w, r)
		if !ok {
			return
		}
		var body struct {
			GiftID string `json:"giftId"`
		}
		if err := decodeBody(w, r, &body); err != nil {
			writeMessage(w, http.StatusBadRequest, err.Error())
			return
		}
		if body.GiftID == "" {
			writeMessage(w, http.StatusBadRequest, "Gift id required")
			return
		}
		view, err := move(r, r.PathValue("id"), playerID, body.GiftID)
		if err != nil {
			h.writeError(w, r, what, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func (h *Handler) openGift(w http.ResponseWriter, r *http.Request) {
	h.giftAction("Cannot open gift", func(r *http.Request, partyID, playerID, giftID string) (*game.ClientView, error) {
		return h.svc.OpenGift(r.Context(), partyID, playerID, giftID)
	})(w, r)
}

func (h *Handler) stealGift(w http.ResponseWriter, r *http.Request) {
	h.giftAction("Cannot steal gift", func(r *http.Request, partyID, playerID, giftID string) (*game.ClientView, error) {
		return h.svc.StealGift(r.Context(), partyID, playerID, giftID)
	})(w, r)
}

func (h *Handler) swapGift(w http.ResponseWriter, r *http.Request) {
	h.giftAction("Cannot swap gift", func(r *http.Request, partyID, playerID, giftID string) (*game.ClientView, error) {
		return h.svc.SwapGift(r.Context(), partyID, playerID, giftID)
	})(w, r)
}

func (h *Handler) keepGift(w http.ResponseWriter, r *http.Request) {
	playerID, ok := h.caller(w, r)
	if !ok {
		return
	}
	view, err := h.svc.KeepGift(r.Context(), r.PathValue("id"), playerID)
	if err != nil {
		h.writeError(w, r, "Cannot keep gift", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

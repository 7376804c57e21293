package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/xtding233/giftdraw/internal/gacha"
	"github.com/xtding233/giftdraw/internal/pricing"
	"github.com/xtding233/giftdraw/internal/stats"
)

type drawReq struct {
	PlayerID string `json:"player_id"`
	Tier     string `json:"tier"`
	Count    int    `json:"count,omitempty"`
}

type drawResp struct {
	gacha.Result
	Emoji     string       `json:"emoji,omitempty"`
	Name      string       `json:"name,omitempty"`
	Animation []gacha.Item `json:"animation"`
}

type multiResp struct {
	Draws []drawResp        `json:"draws"`
	Stats stats.PlayerStats `json:"stats"`
	Err   string            `json:"err,omitempty"`
}

func (s *Server) draw(ctx context.Context, req drawReq) (drawResp, error) {
	res, err := s.deps.Engine.Draw(ctx, req.PlayerID, gacha.Tier(req.Tier))
	if err != nil {
		return drawResp{}, err
	}
	spec, _ := s.deps.Engine.Rules().Catalog.Lookup(res.Item)
	s.deliverAsync(res.PlayerID, spec)
	return drawResp{
		Result:    res,
		Emoji:     spec.Emoji,
		Name:      spec.Name,
		Animation: s.deps.Engine.Animation(res.Item),
	}, nil
}

// one paid draw
func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	var req drawReq
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	resp, err := s.draw(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// up to MaxMultiDraw sequential draws; stops at the first failure and
// returns the draws that did complete
func (s *Server) handleMultiDraw(w http.ResponseWriter, r *http.Request) {
	var req drawReq
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if req.Count < 1 || req.Count > MaxMultiDraw {
		writeErr(w, http.StatusBadRequest, fmt.Sprintf("count must be 1..%d", MaxMultiDraw))
		return
	}
	var out multiResp
	for i := 0; i < req.Count; i++ {
		d, err := s.draw(r.Context(), req)
		if err != nil {
			if len(out.Draws) == 0 {
				s.fail(w, r, err)
				return
			}
			out.Err = err.Error()
			break
		}
		out.Draws = append(out.Draws, d)
		out.Stats = d.Stats
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Engine.Stats(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type tierEntry struct {
	Item   gacha.Item      `json:"item"`
	Weight float64         `json:"weight"`
	Boost  gacha.Direction `json:"boost"`
}

type tierView struct {
	Tier    gacha.Tier  `json:"tier"`
	Cost    int64       `json:"cost"`
	Entries []tierEntry `json:"entries"`
}

type tiersResp struct {
	Tiers  []tierView      `json:"tiers"`
	Quotes []pricing.Quote `json:"quotes"`
}

func (s *Server) handleTiers(w http.ResponseWriter, _ *http.Request) {
	var resp tiersResp
	for _, t := range s.deps.Engine.Rules().Tiers() {
		v := tierView{Tier: t.Tier, Cost: t.Cost}
		for _, e := range t.Entries {
			v.Entries = append(v.Entries, tierEntry{Item: e.Item, Weight: e.Weight, Boost: e.Direction})
		}
		resp.Tiers = append(resp.Tiers, v)
	}
	resp.Quotes = s.quotes.Quotes
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	budget, ok, msg := parseInt(r, "budget")
	if !ok {
		if msg == "" {
			msg = "missing param budget"
		}
		writeErr(w, http.StatusBadRequest, msg)
		return
	}
	plan, err := pricing.MaxValueUnderBudget(s.quotes, budget)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

type userReq struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var req userReq
	if err := decode(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeErr(w, http.StatusBadRequest, "id is required")
		return
	}
	u, err := s.deps.Users.Add(r.Context(), req.ID, req.Username)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleRemoveUser(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Users.Remove(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	g, err := s.deps.Admin.Global(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Admin.Users(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": list})
}

func (s *Server) handleArmBroadcast(w http.ResponseWriter, r *http.Request) {
	if s.deps.Broadcaster == nil {
		writeErr(w, http.StatusNotImplemented, "broadcast is not configured")
		return
	}
	id := adminID(r)
	if id == "" {
		writeErr(w, http.StatusBadRequest, msgNoAdminID)
		return
	}
	s.deps.Broadcaster.Sessions.Arm(id)
	writeJSON(w, http.StatusOK, map[string]bool{"armed": true})
}

// sessions are keyed per admin, so token-only callers cannot broadcast
const msgNoAdminID = "X-Admin-ID header is required for broadcast"

type broadcastReq struct {
	Text string `json:"text"`
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	if s.deps.Broadcaster == nil {
		writeErr(w, http.StatusNotImplemented, "broadcast is not configured")
		return
	}
	id := adminID(r)
	if id == "" {
		writeErr(w, http.StatusBadRequest, msgNoAdminID)
		return
	}
	var req broadcastReq
	if err := decode(r, &req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeErr(w, http.StatusBadRequest, "text is required")
		return
	}
	rep, ok, err := s.deps.Broadcaster.Submit(r.Context(), id, req.Text)
	if !ok {
		writeErr(w, http.StatusConflict, "no broadcast armed for this admin")
		return
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveBroadcast(rep.Sent, rep.Failed)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// deliverAsync sends the gift in the background. The draw is already
// persisted, so a delivery failure only yields the fallback link.
func (s *Server) deliverAsync(playerID string, spec gacha.ItemSpec) {
	if s.deps.Delivery == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.deps.DeliveryTimeout)
		defer cancel()
		out := s.deps.Delivery.Deliver(ctx, playerID, spec)

		result := "delivered"
		switch {
		case out.Upgraded:
			result = "upgraded"
		case !out.Delivered:
			result = "fallback"
		}
		if s.deps.Metrics != nil {
			s.deps.Metrics.ObserveDelivery(result)
		}
		s.deps.Log.WithFields(logrus.Fields{
			"player_id": playerID,
			"item":      spec.Kind,
			"result":    result,
			"link":      out.FallbackLink,
		}).Info("gift delivery")
	}()
}

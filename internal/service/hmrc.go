package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/auth"
	"github.com/reelin/backend/internal/hmrc"
	"github.com/reelin/backend/internal/logging"
	"github.com/reelin/backend/internal/model"
	"github.com/reelin/backend/internal/store"
	"go.uber.org/zap"
)

// StartHMRCConnection begins the HMRC authorisation for a VAT registration number. An
// active connection keeps working on its old token until the new consent completes.
func (s *ReelinService) StartHMRCConnection(ctx context.Context, req *connect.Request[StartHMRCConnectionRequest]) (*connect.Response[StartHMRCConnectionResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if s.hmrc == nil {
		return nil, unavailable("HMRC integration")
	}
	vrn := strings.ReplaceAll(strings.TrimSpace(req.Msg.VRN), " ", "")
	if !hmrc.ValidVRN(vrn) {
		return nil, invalidArgument(fmt.Errorf("VAT registration number must be nine digits"))
	}
	state, err := newState()
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	conn, err := s.store.GetHMRCConnection(ctx, claims.UID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		conn = &model.HMRCConnection{UserID: claims.UID}
	case err != nil:
		return nil, auth.WrapStoreError("get HMRC connection", err)
	}
	if conn.Status != model.ConnectionActive {
		conn.Status = model.ConnectionPending
		conn.VRN = vrn
	}
	conn.PendingVRN = vrn
	conn.State = state
	if err := s.store.UpsertHMRCConnection(ctx, conn); err != nil {
		return nil, auth.WrapStoreError("save HMRC connection", err)
	}
	return connect.NewResponse(&StartHMRCConnectionResponse{AuthURL: s.hmrc.AuthCodeURL(state), State: state}), nil
}

// CompleteHMRCConnection exchanges the authorisation code and marks the user VAT registered.
func (s *ReelinService) CompleteHMRCConnection(ctx context.Context, req *connect.Request[CompleteHMRCConnectionRequest]) (*connect.Response[CompleteHMRCConnectionResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if s.hmrc == nil {
		return nil, unavailable("HMRC integration")
	}
	if req.Msg.Code == "" || req.Msg.State == "" {
		return nil, invalidArgument(fmt.Errorf("code and state are required"))
	}

	conn, err := s.store.GetHMRCConnectionByState(ctx, req.Msg.State)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, invalidArgument(fmt.Errorf("unknown or expired state"))
		}
		return nil, auth.WrapStoreError("get HMRC connection", err)
	}
	if conn.UserID != claims.UID {
		return nil, invalidArgument(fmt.Errorf("unknown or expired state"))
	}

	tok, err := s.hmrc.Exchange(ctx, req.Msg.Code)
	if err != nil {
		return nil, integrationError("exchange HMRC code", err)
	}
	conn.Token = model.TokenFromOAuth2(tok)
	if conn.PendingVRN != "" {
		conn.VRN = conn.PendingVRN
	}
	conn.PendingVRN = ""
	conn.State = ""
	conn.Status = model.ConnectionActive
	conn.ConnectedAt = s.now()
	if err := s.store.UpsertHMRCConnection(ctx, conn); err != nil {
		return nil, auth.WrapStoreError("save HMRC connection", err)
	}

	user := s.userOrNew(ctx, claims)
	user.VATRegistered = true
	user.VRN = conn.VRN
	user.UpdatedAt = s.now()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		logging.L().Warn("failed to record VRN on profile",
			zap.String("component", "hmrc"),
			zap.String("uid", claims.UID),
			zap.Error(err))
	}

	return connect.NewResponse(&CompleteHMRCConnectionResponse{Connection: conn}), nil
}

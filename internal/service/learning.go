package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"connectrpc.com/connect"
	"github.com/reelin/backend/internal/auth"
	"github.com/reelin/backend/internal/lessons"
	"github.com/reelin/backend/internal/logging"
	"github.com/reelin/backend/internal/model"
	"go.uber.org/zap"
)

// ListLessons returns the course outline. Public.
func (s *ReelinService) ListLessons(ctx context.Context, req *connect.Request[ListLessonsRequest]) (*connect.Response[ListLessonsResponse], error) {
	return connect.NewResponse(&ListLessonsResponse{Modules: lessons.Modules()}), nil
}

// GetLesson returns a lesson body. Public; signed-in callers also learn whether they
// completed it.
func (s *ReelinService) GetLesson(ctx context.Context, req *connect.Request[GetLessonRequest]) (*connect.Response[GetLessonResponse], error) {
	lesson, ok := lessons.Get(req.Msg.Slug)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("lesson %q not found", req.Msg.Slug))
	}
	resp := &GetLessonResponse{Lesson: lesson}
	if claims, ok := auth.GetUserClaims(ctx); ok {
		slugs, err := s.completedSlugs(ctx, claims.UID)
		if err != nil {
			return nil, err
		}
		for _, slug := range slugs {
			if slug == lesson.Slug {
				resp.Completed = true
				break
			}
		}
	}
	return connect.NewResponse(resp), nil
}

// CompleteLesson marks a lesson done. Completing it again keeps the first completion.
func (s *ReelinService) CompleteLesson(ctx context.Context, req *connect.Request[CompleteLessonRequest]) (*connect.Response[CompleteLessonResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := lessons.Get(req.Msg.Slug); !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("lesson %q not found", req.Msg.Slug))
	}
	progress := &model.LessonProgress{
		UserID:      claims.UID,
		LessonSlug:  req.Msg.Slug,
		CompletedAt: s.now(),
	}
	if err := s.store.UpsertLessonProgress(ctx, progress); err != nil {
		return nil, auth.WrapStoreError("save lesson progress", err)
	}

	slugs, err := s.completedSlugs(ctx, claims.UID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&CompleteLessonResponse{Progress: lessons.ComputeProgress(slugs)}), nil
}

// GetLearningProgress summarises the caller's completed lessons.
func (s *ReelinService) GetLearningProgress(ctx context.Context, req *connect.Request[GetLearningProgressRequest]) (*connect.Response[GetLearningProgressResponse], error) {
	claims, err := auth.RequireAuth(ctx)
	if err != nil {
		return nil, err
	}
	slugs, err := s.completedSlugs(ctx, claims.UID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&GetLearningProgressResponse{Progress: lessons.ComputeProgress(slugs)}), nil
}

func (s *ReelinService) completedSlugs(ctx context.Context, uid string) ([]string, error) {
	progress, err := s.store.ListLessonProgress(ctx, uid)
	if err != nil {
		return nil, auth.WrapStoreError("list lesson progress", err)
	}
	slugs := make([]string, 0, len(progress))
	for _, p := range progress {
		slugs = append(slugs, p.LessonSlug)
	}
	return slugs, nil
}

// normalizeEmail validates an address and returns it lower-cased without a display name.
func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid email address")
	}
	email := strings.ToLower(addr.Address)
	if !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", fmt.Errorf("invalid email address")
	}
	return email, nil
}

// JoinWaitlist adds an email to the waitlist. Joining twice returns the original position.
func (s *ReelinService) JoinWaitlist(ctx context.Context, req *connect.Request[JoinWaitlistRequest]) (*connect.Response[JoinWaitlistResponse], error) {
	email, err := normalizeEmail(req.Msg.Email)
	if err != nil {
		return nil, invalidArgument(err)
	}
	entry := &model.WaitlistEntry{
		Email:     email,
		Name:      strings.TrimSpace(req.Msg.Name),
		Referrer:  strings.TrimSpace(req.Msg.Referrer),
		CreatedAt: s.now(),
	}
	stored, created, err := s.store.AddWaitlistEntry(ctx, entry)
	if err != nil {
		return nil, auth.WrapStoreError("join waitlist", err)
	}
	if created {
		logging.L().Info("waitlist signup",
			zap.String("component", "waitlist"),
			zap.Int("position", stored.Position),
			zap.String("referrer", entry.Referrer))
	}
	return connect.NewResponse(&JoinWaitlistResponse{Position: stored.Position, AlreadyJoined: !created}), nil
}

// GetWaitlistStats reports how many people have joined. Public.
func (s *ReelinService) GetWaitlistStats(ctx context.Context, req *connect.Request[GetWaitlistStatsRequest]) (*connect.Response[GetWaitlistStatsResponse], error) {
	n, err := s.store.CountWaitlist(ctx)
	if err != nil {
		return nil, auth.WrapStoreError("count waitlist", err)
	}
	return connect.NewResponse(&GetWaitlistStatsResponse{Count: n}), nil
}

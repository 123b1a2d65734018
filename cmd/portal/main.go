package main

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/workplace-reservations/internal/application"
	"github.com/example/workplace-reservations/internal/config"
	httptransport "github.com/example/workplace-reservations/internal/http"
	"github.com/example/workplace-reservations/internal/interval"
	"github.com/example/workplace-reservations/internal/persistence"
	"github.com/example/workplace-reservations/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	idGenerator := uuid.NewString
	tokenGenerator := sessionTokenGenerator(cfg.SessionSecret)
	now := time.Now

	bookings := sqlite.NewBookingRepository(storage)
	bookingRepo := newBookingRepositoryAdapter(bookings)
	participantRepo := newParticipantRepositoryAdapter(sqlite.NewParticipantRepository(storage))
	resourceDirectory := newResourceDirectoryAdapter(sqlite.NewResourceRepository(storage))
	users := sqlite.NewUserRepository(storage)
	directory := newDirectoryAdapter(users)
	sessionRepo := newSessionRepositoryAdapter(sqlite.NewSessionRepository(storage))
	credentialStore := newCredentialStoreAdapter(users)
	sink := newLogNotificationSink(logger)

	index, err := loadIndex(context.Background(), bookings)
	if err != nil {
		logger.Error("failed to load interval index", "error", err)
		os.Exit(1)
	}
	locks := application.NewResourceLocks()

	roomService := application.NewBookingService(application.ResourceKindRoom, bookingRepo, participantRepo, resourceDirectory, directory, index, locks, sink, idGenerator, now, logger)
	vehicleService := application.NewBookingService(application.ResourceKindVehicle, bookingRepo, participantRepo, resourceDirectory, directory, index, locks, sink, idGenerator, now, logger)
	participantService := application.NewParticipantService(bookingRepo, participantRepo, directory, sink, idGenerator, now, logger)
	calendarService := application.NewCalendarService(roomService, vehicleService, logger)
	resourceService := application.NewResourceService(resourceDirectory, logger)
	sessionService := application.NewSessionService(credentialStore, sessionRepo, nil, tokenGenerator, now, cfg.SessionTTL, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:         httptransport.NewAuthHandler(sessionService, logger),
		Bookings:     httptransport.NewBookingHandler(roomService, vehicleService, resourceService, logger),
		Participants: httptransport.NewParticipantHandler(participantService, logger),
		Calendar:     httptransport.NewCalendarHandler(calendarService, logger),
		Resources:    httptransport.NewResourceHandler(resourceService, logger),
	})

	protected := httptransport.RequireSession(sessionService, logger)(router)
	handler := httptransport.RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && strings.EqualFold(r.URL.Path, "/sessions") {
			router.ServeHTTP(w, r)
			return
		}
		protected.ServeHTTP(w, r)
	}))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("reservation API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// sessionTokenGenerator derives opaque tokens by mixing fresh randomness with
// the deployment secret so tokens from different deployments never collide.
func sessionTokenGenerator(secret string) func() string {
	return func() string {
		buf := make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, buf); err != nil {
			return uuid.NewString()
		}
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(buf)
		return hex.EncodeToString(mac.Sum(nil))
	}
}

// loadIndex seeds the in-memory interval index from the committed ledger so
// conflict checks are warm before the first request.
func loadIndex(ctx context.Context, bookings persistence.BookingRepository) (*interval.Index, error) {
	stored, err := bookings.ListBookings(ctx, persistence.BookingFilter{})
	if err != nil {
		return nil, err
	}
	entries := make([]interval.Booking, 0, len(stored))
	for _, booking := range stored {
		entries = append(entries, interval.Booking{
			BookingID:  booking.ID,
			ResourceID: booking.ResourceID,
			Start:      booking.Start,
			End:        booking.End,
		})
	}
	return interval.NewIndexFromBookings(entries), nil
}

type logNotificationSink struct {
	logger *slog.Logger
}

func newLogNotificationSink(logger *slog.Logger) *logNotificationSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &logNotificationSink{logger: logger}
}

func (s *logNotificationSink) Notify(ctx context.Context, userID, message, kind, relatedID string) error {
	s.logger.InfoContext(ctx, "notification dispatched",
		"user_id", userID,
		"kind", kind,
		"related_id", relatedID,
		"message", message,
	)
	return nil
}

type bookingRepositoryAdapter struct {
	repo persistence.BookingRepository
}

func newBookingRepositoryAdapter(repo persistence.BookingRepository) *bookingRepositoryAdapter {
	return &bookingRepositoryAdapter{repo: repo}
}

func (a *bookingRepositoryAdapter) CreateBooking(ctx context.Context, booking application.Booking, participants []application.Participant) error {
	rows := make([]persistence.Participant, 0, len(participants))
	for _, participant := range participants {
		rows = append(rows, toPersistenceParticipant(participant))
	}
	return a.repo.CreateBooking(ctx, toPersistenceBooking(booking), rows)
}

func (a *bookingRepositoryAdapter) GetBooking(ctx context.Context, id string) (application.Booking, error) {
	stored, err := a.repo.GetBooking(ctx, id)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) ListBookings(ctx context.Context, filter application.BookingRepositoryFilter) ([]application.Booking, error) {
	models, err := a.repo.ListBookings(ctx, persistence.BookingFilter{
		ResourceID: filter.ResourceID,
		Kind:       persistence.ResourceKind(filter.Kind),
		UserID:     filter.UserID,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	bookings := make([]application.Booking, 0, len(models))
	for _, model := range models {
		bookings = append(bookings, toApplicationBooking(model))
	}
	return bookings, nil
}

func (a *bookingRepositoryAdapter) DeleteBooking(ctx context.Context, id string) error {
	return a.repo.DeleteBooking(ctx, id)
}

type participantRepositoryAdapter struct {
	repo persistence.ParticipantRepository
}

func newParticipantRepositoryAdapter(repo persistence.ParticipantRepository) *participantRepositoryAdapter {
	return &participantRepositoryAdapter{repo: repo}
}

func (a *participantRepositoryAdapter) AddParticipants(ctx context.Context, participants []application.Participant) error {
	rows := make([]persistence.Participant, 0, len(participants))
	for _, participant := range participants {
		rows = append(rows, toPersistenceParticipant(participant))
	}
	return a.repo.AddParticipants(ctx, rows)
}

func (a *participantRepositoryAdapter) GetParticipant(ctx context.Context, id string) (application.Participant, error) {
	stored, err := a.repo.GetParticipant(ctx, id)
	if err != nil {
		return application.Participant{}, err
	}
	return toApplicationParticipant(stored), nil
}

func (a *participantRepositoryAdapter) ListParticipantsForBooking(ctx context.Context, bookingID string) ([]application.Participant, error) {
	models, err := a.repo.ListParticipantsForBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	participants := make([]application.Participant, 0, len(models))
	for _, model := range models {
		participants = append(participants, toApplicationParticipant(model))
	}
	return participants, nil
}

func (a *participantRepositoryAdapter) UpdateParticipantStatus(ctx context.Context, id string, from, to application.ParticipantStatus, updatedAt time.Time) error {
	return a.repo.UpdateParticipantStatus(ctx, id, persistence.ParticipantStatus(from), persistence.ParticipantStatus(to), updatedAt)
}

type resourceDirectoryAdapter struct {
	repo persistence.ResourceRepository
}

func newResourceDirectoryAdapter(repo persistence.ResourceRepository) *resourceDirectoryAdapter {
	return &resourceDirectoryAdapter{repo: repo}
}

func (a *resourceDirectoryAdapter) GetResource(ctx context.Context, id string) (application.Resource, error) {
	stored, err := a.repo.GetResource(ctx, id)
	if err != nil {
		return application.Resource{}, err
	}
	return toApplicationResource(stored), nil
}

func (a *resourceDirectoryAdapter) ListResources(ctx context.Context, kind application.ResourceKind) ([]application.Resource, error) {
	models, err := a.repo.ListResources(ctx, persistence.ResourceKind(kind))
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	resources := make([]application.Resource, 0, len(models))
	for _, model := range models {
		resources = append(resources, toApplicationResource(model))
	}
	return resources, nil
}

type directoryAdapter struct {
	repo persistence.UserRepository
}

func newDirectoryAdapter(repo persistence.UserRepository) *directoryAdapter {
	return &directoryAdapter{repo: repo}
}

func (a *directoryAdapter) GetUser(ctx context.Context, id string) (application.DirectoryUser, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.DirectoryUser{}, err
	}
	return toDirectoryUser(stored), nil
}

func (a *directoryAdapter) ListUsersByRole(ctx context.Context, role string) ([]application.DirectoryUser, error) {
	models, err := a.repo.ListUsersByRole(ctx, role)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	users := make([]application.DirectoryUser, 0, len(models))
	for _, model := range models {
		users = append(users, toDirectoryUser(model))
	}
	return users, nil
}

// toDirectoryUser splits the stored display name on the first space, family
// name first per the directory's naming convention.
func toDirectoryUser(model persistence.User) application.DirectoryUser {
	last, first, _ := strings.Cut(model.DisplayName, " ")
	return application.DirectoryUser{
		ID:        model.ID,
		FirstName: first,
		LastName:  last,
		Email:     model.Email,
	}
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) error {
	return a.repo.CreateSession(ctx, persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	})
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return application.Session{
		ID:        stored.ID,
		UserID:    stored.UserID,
		Token:     stored.Token,
		ExpiresAt: stored.ExpiresAt,
		CreatedAt: stored.CreatedAt,
		RevokedAt: cloneTime(stored.RevokedAt),
	}, nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) error {
	return a.repo.RevokeSession(ctx, token, revokedAt)
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

type credentialStoreAdapter struct {
	repo persistence.UserRepository
}

func newCredentialStoreAdapter(repo persistence.UserRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

func (a *credentialStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		IsAdmin:     model.Role == "admin",
	}
}

func toApplicationBooking(model persistence.Booking) application.Booking {
	return application.Booking{
		ID:          model.ID,
		ResourceID:  model.ResourceID,
		Kind:        application.ResourceKind(model.Kind),
		OrganizerID: model.OrganizerID,
		Title:       model.Title,
		Start:       model.Start,
		End:         model.End,
		CreatedAt:   model.CreatedAt,
	}
}

func toPersistenceBooking(booking application.Booking) persistence.Booking {
	return persistence.Booking{
		ID:          booking.ID,
		ResourceID:  booking.ResourceID,
		Kind:        persistence.ResourceKind(booking.Kind),
		OrganizerID: booking.OrganizerID,
		Title:       booking.Title,
		Start:       booking.Start,
		End:         booking.End,
		CreatedAt:   booking.CreatedAt,
	}
}

func toApplicationParticipant(model persistence.Participant) application.Participant {
	return application.Participant{
		ID:        model.ID,
		BookingID: model.BookingID,
		UserID:    model.UserID,
		Role:      application.ParticipantRole(model.Role),
		Status:    application.ParticipantStatus(model.Status),
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceParticipant(participant application.Participant) persistence.Participant {
	return persistence.Participant{
		ID:        participant.ID,
		BookingID: participant.BookingID,
		UserID:    participant.UserID,
		Role:      persistence.ParticipantRole(participant.Role),
		Status:    persistence.ParticipantStatus(participant.Status),
		CreatedAt: participant.CreatedAt,
		UpdatedAt: participant.UpdatedAt,
	}
}

func toApplicationResource(model persistence.Resource) application.Resource {
	return application.Resource{
		ID:           model.ID,
		Kind:         application.ResourceKind(model.Kind),
		Name:         model.Name,
		Location:     cloneString(model.Location),
		Capacity:     model.Capacity,
		Facilities:   cloneString(model.Facilities),
		PlateNumber:  cloneString(model.PlateNumber),
		FuelType:     cloneString(model.FuelType),
		Transmission: cloneString(model.Transmission),
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

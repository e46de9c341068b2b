// Package report validates and stores new item reports.
package report

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
	"time"

	"findit/internal/keywords"
	"findit/internal/model"
	"findit/internal/notify"
	"findit/internal/query"
	"findit/internal/storage"
)

// DefaultTTL is how long a report stays listed.
const DefaultTTL = 180 * 24 * time.Hour

const (
	minCode = 100000
	maxCode = 999999
)

var (
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	descriptionFilter = regexp.MustCompile(`[^\w\s.,!?-]`)
)

// Input is a report as submitted by a user.
type Input struct {
	Kind        model.ReportKind
	Description string
	Location    string
	Fullname    string
	Email       string
	PhoneNumber string
	Course      string
	YearOfStudy string
	ImageURL    string
	DateLost    time.Time
	TimeLost    string
}

// Result describes a stored report.
type Result struct {
	ID string
	// EmailErr is set when the report was stored but the verification code
	// could not be delivered.
	EmailErr error
}

// ValidationError names the first invalid field of an Input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Creator stores new documents.
type Creator interface {
	Create(ctx context.Context, doc *storage.Document) error
}

// Service submits reports.
type Service struct {
	store   Creator
	mailer  notify.Sender
	ttl     time.Duration
	timeout time.Duration
	log     *slog.Logger

	now     func() time.Time
	newCode func() (int, error)
}

// New creates a Service. A nil mailer skips email delivery.
func New(store Creator, mailer notify.Sender, ttl, timeout time.Duration, log *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		store:   store,
		mailer:  mailer,
		ttl:     ttl,
		timeout: timeout,
		log:     log,
		now:     time.Now,
		newCode: generateCode,
	}
}

// Submit validates in, stores it and, for lost reports, emails the
// verification code to the reporter. A failed email does not undo the
// submission; it is reported in Result.EmailErr.
func (s *Service) Submit(ctx context.Context, in Input) (*Result, error) {
	in = normalize(in)
	if err := validate(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	doc := &storage.Document{
		Description: in.Description,
		Location:    in.Location,
		Fullname:    in.Fullname,
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
		ImageURL:    in.ImageURL,
		Keywords:    keywords.Generate(in.Description + " " + in.Location),
		ExpiresAt:   now.Add(s.ttl),
		CreatedAt:   now,
	}

	switch in.Kind {
	case model.KindLost:
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		doc.Collection = query.LostItems
		doc.Course = in.Course
		doc.YearOfStudy = in.YearOfStudy
		doc.DateLost = in.DateLost.UTC()
		doc.TimeLost = in.TimeLost
		doc.VerificationCode = code
	case model.KindFound:
		doc.Collection = query.FoundItems
	}

	if err := s.create(ctx, doc); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}
	s.log.Info("report submitted", "kind", in.Kind, "item_id", doc.ID)

	res := &Result{ID: doc.ID}
	if in.Kind == model.KindLost && s.mailer != nil {
		if err := s.mailer.SendCode(ctx, in.Email, doc.VerificationCode); err != nil {
			s.log.Warn("send verification code", "item_id", doc.ID, "error", err)
			res.EmailErr = err
		}
	}
	return res, nil
}

func (s *Service) create(ctx context.Context, doc *storage.Document) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.store.Create(ctx, doc)
}

// SanitizeDescription drops every character other than letters, digits,
// underscores, whitespace and the punctuation .,!?-
func SanitizeDescription(s string) string {
	return descriptionFilter.ReplaceAllString(s, "")
}

func normalize(in Input) Input {
	in.Description = strings.TrimSpace(SanitizeDescription(in.Description))
	in.Location = strings.TrimSpace(in.Location)
	in.Fullname = strings.TrimSpace(in.Fullname)
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Course = strings.TrimSpace(in.Course)
	in.YearOfStudy = strings.TrimSpace(in.YearOfStudy)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.TimeLost = strings.TrimSpace(in.TimeLost)
	return in
}

func validate(in Input) error {
	switch {
	case in.Kind != model.KindLost && in.Kind != model.KindFound:
		return &ValidationError{Field: "kind", Reason: "must be lost or found"}
	case in.Description == "":
		return &ValidationError{Field: "description", Reason: "is required"}
	case in.Location == "":
		return &ValidationError{Field: "location", Reason: "is required"}
	case in.Email == "":
		return &ValidationError{Field: "email", Reason: "is required"}
	case in.Kind == model.KindFound && in.ImageURL == "":
		return &ValidationError{Field: "image", Reason: "is required for found items"}
	case in.Kind == model.KindLost && in.DateLost.IsZero():
		return &ValidationError{Field: "date", Reason: "is required for lost items"}
	case !emailPattern.MatchString(in.Email):
		return &ValidationError{Field: "email", Reason: "is not a valid address"}
	}
	return nil
}

func generateCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(maxCode-minCode+1))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()) + minCode, nil
}

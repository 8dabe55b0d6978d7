package workflow

import (
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"qcflow/internal/domain/quality"
	"qcflow/internal/ports"
)

// Operation names recorded with deduplicated requests.
const (
	opCreateIssue = "create_issue"
	opEditIssue   = "edit_issue"
	opDeleteIssue = "delete_issue"
	opAddComment  = "add_comment"
)

type Options struct {
	// OperationTimeout bounds each call whose context has no deadline. Zero disables it.
	OperationTimeout time.Duration
	RequestTTL       time.Duration
	MaxCommentLength int
	CommentPageSize  int
}

func DefaultOptions() Options {
	return Options{
		OperationTimeout: 5 * time.Second,
		RequestTTL:       24 * time.Hour,
		MaxCommentLength: quality.DefaultMaxCommentLength,
		CommentPageSize:  100,
	}
}

// Service is the workflow engine. It is safe for concurrent use; transitions
// on one issue are serialized, different issues proceed in parallel.
type Service struct {
	repo      ports.IssueRepository
	uow       ports.UnitOfWork
	identity  ports.IdentityProvider
	publisher ports.EventPublisher
	opts      Options

	now        func() time.Time
	newIssueID func() string
	newID      func() string
	locks      *issueLocks
}

type Option func(*Service)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerators replaces the issue id and record id generators.
func WithIDGenerators(issueID func() string, recordID func() string) Option {
	return func(s *Service) {
		if issueID != nil {
			s.newIssueID = issueID
		}
		if recordID != nil {
			s.newID = recordID
		}
	}
}

// NewService wires the engine. publisher may be nil when events are not wanted.
func NewService(
	repo ports.IssueRepository,
	uow ports.UnitOfWork,
	identity ports.IdentityProvider,
	publisher ports.EventPublisher,
	opts Options,
	options ...Option,
) *Service {
	defaults := DefaultOptions()
	if opts.RequestTTL <= 0 {
		opts.RequestTTL = defaults.RequestTTL
	}
	if opts.MaxCommentLength <= 0 {
		opts.MaxCommentLength = defaults.MaxCommentLength
	}
	if opts.CommentPageSize <= 0 {
		opts.CommentPageSize = defaults.CommentPageSize
	}
	if opts.OperationTimeout < 0 {
		opts.OperationTimeout = 0
	}

	s := &Service{
		repo:       repo,
		uow:        uow,
		identity:   identity,
		publisher:  publisher,
		opts:       opts,
		now:        func() time.Time { return time.Now().UTC() },
		newIssueID: func() string { return uuid.Must(uuid.NewV7()).String() },
		newID:      func() string { return ulid.Make().String() },
		locks:      newIssueLocks(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

type CreateIssueInput struct {
	ActorID   string
	RequestID string

	Title       string
	Description string
	Location    string
	Priority    string
	// ReporterID defaults to ActorID. Only an admin may file on behalf of someone else.
	ReporterID              string
	SupervisorID            string
	BeforePhotoRef          string
	EstimatedFixTimeMinutes *int
}

type AssignWorkerInput struct {
	IssueID   string
	ActorID   string
	RequestID string
	WorkerID  string
}

type StartWorkInput struct {
	IssueID   string
	ActorID   string
	RequestID string
}

type SubmitFixInput struct {
	IssueID       string
	ActorID       string
	RequestID     string
	AfterPhotoRef string
}

type AcceptForReviewInput struct {
	IssueID   string
	ActorID   string
	RequestID string
	Reason    string
}

type RejectAtFirstPassInput struct {
	IssueID   string
	ActorID   string
	RequestID string
	Reason    string
}

type FinalizeInput struct {
	IssueID   string
	ActorID   string
	RequestID string
	Decision  string
	Reason    string
}

type EditFieldsInput struct {
	IssueID   string
	ActorID   string
	RequestID string
	Patch     quality.Patch
}

type DeleteIssueInput struct {
	IssueID   string
	ActorID   string
	RequestID string
}

type AddCommentInput struct {
	IssueID   string
	ActorID   string
	RequestID string
	Text      string
	Kind      string
}

package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"nearhire/internal/call"
	"nearhire/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

// Client uploads call-detail records to an S3 bucket.
type Client struct {
	cfg S3Config
	s3  *s3.Client
}

func NewClient(ctx context.Context, cfg S3Config) (*Client, error) {
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 region and bucket are required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Client{cfg: cfg, s3: s3Client}, nil
}

// cdr is the archived JSON shape of one finished call.
type cdr struct {
	CallID          string    `json:"call_id"`
	CallerID        string    `json:"caller_id"`
	CalleeID        string    `json:"callee_id"`
	RoomID          string    `json:"room_id"`
	Type            string    `json:"type"`
	StartedAt       time.Time `json:"started_at"`
	ConnectedAt     time.Time `json:"connected_at,omitempty"`
	EndedAt         time.Time `json:"ended_at"`
	EndReason       string    `json:"end_reason"`
	DurationSeconds int       `json:"duration_seconds"`
}

func (c *Client) putCDR(ctx context.Context, rec cdr) error {
	key := fmt.Sprintf("cdr/%s/%s.json", rec.EndedAt.UTC().Format("2006/01/02"), rec.CallID)
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	return err
}

// Recorder adapts the archiver to the call engine's Recorder contract. It
// accumulates lifecycle facts per call in memory and ships one CDR object
// when the call ends. Best-effort: upload failures are logged, never
// surfaced to the session.
type Recorder struct {
	client *Client
	log    *logger.Logger

	mu      sync.Mutex
	pending map[uuid.UUID]*cdr
}

func NewRecorder(client *Client, log *logger.Logger) *Recorder {
	if log == nil {
		log = logger.NewNop()
	}
	return &Recorder{client: client, log: log, pending: make(map[uuid.UUID]*cdr)}
}

func (r *Recorder) CallStarted(ctx context.Context, rec call.Record) error {
	r.mu.Lock()
	r.pending[rec.CallID] = &cdr{
		CallID:    rec.CallID.String(),
		CallerID:  rec.CallerID.String(),
		CalleeID:  rec.CalleeID.String(),
		RoomID:    rec.RoomID,
		Type:      string(rec.Type),
		StartedAt: rec.StartedAt,
	}
	r.mu.Unlock()
	return nil
}

func (r *Recorder) CallConnected(ctx context.Context, callID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	if rec, ok := r.pending[callID]; ok {
		rec.ConnectedAt = at
	}
	r.mu.Unlock()
	return nil
}

func (r *Recorder) CallEnded(ctx context.Context, callID uuid.UUID, reason call.EndReason, at time.Time) error {
	r.mu.Lock()
	rec, ok := r.pending[callID]
	delete(r.pending, callID)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	rec.EndedAt = at
	rec.EndReason = string(reason)
	if !rec.ConnectedAt.IsZero() {
		rec.DurationSeconds = int(at.Sub(rec.ConnectedAt) / time.Second)
	}

	go func() {
		uploadCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.client.putCDR(uploadCtx, *rec); err != nil {
			r.log.Errorf("archive CDR for call %s: %v", rec.CallID, err)
		}
	}()
	return nil
}

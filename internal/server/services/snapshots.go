package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sc "github.com/dmitrijs2005/cloudconfig/internal/server/config"
	"github.com/dmitrijs2005/cloudconfig/internal/server/models"
	"github.com/dmitrijs2005/cloudconfig/internal/server/repositories/repomanager"
)

const snapshotURLExpiry = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ErrSnapshotsDisabled is returned when no bucket is configured.
var ErrSnapshotsDisabled = errors.New("snapshots are not configured")

// Snapshot locates an exported project document.
type Snapshot struct {
	Key     string    `json:"key"`
	URL     string    `json:"url"`
	Entries int       `json:"entries"`
	TakenAt time.Time `json:"taken_at"`
}

type snapshotEntry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	Version   int64           `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type snapshotDocument struct {
	Project *models.Project `json:"project"`
	Entries []snapshotEntry `json:"entries"`
	TakenAt time.Time       `json:"taken_at"`
}

// SnapshotService exports a project's config entries to object storage.
type SnapshotService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	now         func() time.Time
}

func NewSnapshotService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config) *SnapshotService {
	return &SnapshotService{db: db, repomanager: m, config: cfg, now: time.Now}
}

// SnapshotKey is the object key of a snapshot of projectID taken at t.
func SnapshotKey(projectID string, t time.Time) string {
	return fmt.Sprintf("snapshots/%s/%s.json", projectID, t.UTC().Format("20060102T150405Z"))
}

func (s *SnapshotService) getClient(ctx context.Context) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(s.config.S3Region)}
	if s.config.S3AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3AccessKey,
			s.config.S3SecretKey,
			"",
		)))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.config.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Export uploads the project's entries as one JSON document and returns its
// key with a presigned GET URL valid for 15 minutes.
func (s *SnapshotService) Export(ctx context.Context, projectID string) (*Snapshot, error) {
	if !s.config.SnapshotsEnabled() {
		return nil, ErrSnapshotsDisabled
	}
	if err := ValidateID("project", projectID); err != nil {
		return nil, err
	}

	project, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repomanager.Configs(s.db).List(ctx, projectID)
	if err != nil {
		return nil, err
	}

	takenAt := s.now().UTC()
	doc := snapshotDocument{Project: project, Entries: make([]snapshotEntry, 0, len(entries)), TakenAt: takenAt}
	for _, e := range entries {
		doc.Entries = append(doc.Entries, snapshotEntry{
			Key:       e.Key,
			Value:     json.RawMessage(e.Value),
			Version:   e.Version,
			UpdatedAt: e.UpdatedAt,
		})
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}

	bucket := s.config.S3Bucket
	key := SnapshotKey(projectID, takenAt)

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("upload snapshot: %w", err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(snapshotURLExpiry))
	if err != nil {
		return nil, fmt.Errorf("presign snapshot: %w", err)
	}

	return &Snapshot{Key: key, URL: req.URL, Entries: len(entries), TakenAt: takenAt}, nil
}

package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/nijaru/vidsight/models"
)

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type ArchiveConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string
	Bucket    string
}

// Archive stores finished analyses as JSON objects in an S3-compatible
// bucket.
type Archive struct {
	client objectAPI
	bucket string
}

// Record is the archived form of a finished job.
type Record struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Prompt     string    `json:"prompt"`
	Model      string    `json:"model"`
	State      string    `json:"state"`
	Result     string    `json:"result,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Message    string    `json:"message,omitempty"`
	AssetName  string    `json:"asset_name,omitempty"`
	ArchivedAt time.Time `json:"archived_at"`
}

func NewArchive(ctx context.Context, cfg ArchiveConfig) (*Archive, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Archive{client: client, bucket: cfg.Bucket}, nil
}

func ObjectKey(id string) string {
	return fmt.Sprintf("analyses/%s.json", id)
}

func NewRecord(job *models.Job) Record {
	return Record{
		ID:         job.ID,
		Filename:   job.Filename,
		Prompt:     job.Prompt,
		Model:      job.Model,
		State:      string(job.State),
		Result:     job.Result,
		ErrorKind:  job.ErrorKind,
		Message:    job.Message,
		AssetName:  job.AssetName,
		ArchivedAt: time.Now().UTC(),
	}
}

// Job rebuilds the finished job a record was archived from.
func (r *Record) Job() *models.Job {
	return &models.Job{
		ID:        r.ID,
		Filename:  r.Filename,
		Prompt:    r.Prompt,
		Model:     r.Model,
		State:     models.State(r.State),
		Result:    r.Result,
		ErrorKind: r.ErrorKind,
		Message:   r.Message,
		AssetName: r.AssetName,
		CreatedAt: r.ArchivedAt,
		UpdatedAt: r.ArchivedAt,
	}
}

func (a *Archive) Save(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(NewRecord(job))
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(ObjectKey(job.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to save to archive: %w", err)
	}
	return nil
}

// Load returns the archived job with id.
func (a *Archive) Load(ctx context.Context, id string) (*models.Job, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(ObjectKey(id)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get from archive: %w", err)
	}
	defer out.Body.Close()

	var rec Record
	if err := json.NewDecoder(out.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec.Job(), nil
}

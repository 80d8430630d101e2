package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/xitongsys/parquet-go-source/buffer"
	pqreader "github.com/xitongsys/parquet-go/reader"

	appconfig "fillflow/config"
	"fillflow/logger"
	"fillflow/models"
)

// S3Reader serves window fills from hour-aligned parquet objects stored in
// an S3 bucket (same layout as ParquetReader). A missing object means no
// fills were recorded for that hour.
type S3Reader struct {
	client *s3.Client
	bucket string
	prefix string
	log    *logger.Log
}

// NewS3Reader configures the AWS SDK and initializes the S3 client used to
// fetch archive objects.
func NewS3Reader(ctx context.Context, cfg *appconfig.Config) (*S3Reader, error) {
	log := logger.GetLogger()
	s3Cfg := cfg.Source.S3

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(s3Cfg.Region)}
	if s3Cfg.AccessKeyID != "" && s3Cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				s3Cfg.AccessKeyID,
				s3Cfg.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.WithComponent("s3_reader").WithError(err).Warn("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	log.WithComponent("s3_reader").WithFields(logger.Fields{
		"bucket": s3Cfg.Bucket,
		"region": s3Cfg.Region,
		"prefix": s3Cfg.Prefix,
	}).Info("s3 reader initialized")

	return &S3Reader{
		client: s3.NewFromConfig(awsCfg),
		bucket: s3Cfg.Bucket,
		prefix: s3Cfg.Prefix,
		log:    log,
	}, nil
}

// FetchFills downloads and decodes the archive object for the hour starting
// at windowStart.
func (r *S3Reader) FetchFills(ctx context.Context, windowStart, windowEnd time.Time) ([]models.Fill, error) {
	log := r.log.WithComponent("s3_reader").WithFields(logger.Fields{
		"window_start": windowStart.Unix(),
		"window_end":   windowEnd.Unix(),
	})

	key := path.Join(r.prefix, hourObjectName(windowStart.Unix()))

	start := time.Now()
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			log.WithFields(logger.Fields{"key": key}).Debug("no archive object for window")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch archive object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive object %s: %w", key, err)
	}

	bf := buffer.NewBufferFileFromBytes(data)
	pr, err := pqreader.NewParquetReader(bf, new(fillRecord), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet archive %s: %w", key, err)
	}
	defer pr.ReadStop()

	records := make([]fillRecord, pr.GetNumRows())
	if err := pr.Read(&records); err != nil {
		return nil, fmt.Errorf("failed to decode parquet rows from %s: %w", key, err)
	}

	fills, err := fillsFromRecords(records)
	if err != nil {
		return nil, err
	}

	logger.LogPerformanceEntry(log, "s3_reader", "fetch_window", time.Since(start), logger.Fields{
		"key":   key,
		"fills": len(fills),
	})
	logger.IncrementFetch(len(fills))

	return fills, nil
}

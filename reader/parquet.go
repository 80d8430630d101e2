package reader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xitongsys/parquet-go-source/local"
	pqreader "github.com/xitongsys/parquet-go/reader"

	"fillflow/config"
	"fillflow/logger"
	"fillflow/models"
)

// fillRecord is the parquet row schema of an archived fill. Quantity and
// price are stored as decimal strings so no precision is lost in the
// archive.
type fillRecord struct {
	SequenceNumber int64  `parquet:"name=sequence_number, type=INT64"`
	Direction      int32  `parquet:"name=direction, type=INT32"`
	Quantity       string `parquet:"name=quantity, type=BYTE_ARRAY, convertedtype=UTF8"`
	Price          string `parquet:"name=price, type=BYTE_ARRAY, convertedtype=UTF8"`
	Time           int64  `parquet:"name=time, type=INT64"`
}

// hourObjectName names the archive object holding one hour of fills.
func hourObjectName(hourStart int64) string {
	return fmt.Sprintf("fills_%d.parquet", hourStart)
}

func fillsFromRecords(records []fillRecord) ([]models.Fill, error) {
	fills := make([]models.Fill, 0, len(records))
	for _, rec := range records {
		dir := models.Direction(rec.Direction)
		if !dir.Valid() {
			return nil, fmt.Errorf("fill %d has invalid direction %d", rec.SequenceNumber, rec.Direction)
		}
		qty, err := decimal.NewFromString(rec.Quantity)
		if err != nil {
			return nil, fmt.Errorf("fill %d has invalid quantity %q: %w", rec.SequenceNumber, rec.Quantity, err)
		}
		price, err := decimal.NewFromString(rec.Price)
		if err != nil {
			return nil, fmt.Errorf("fill %d has invalid price %q: %w", rec.SequenceNumber, rec.Price, err)
		}
		fills = append(fills, models.Fill{
			SequenceNumber: rec.SequenceNumber,
			Direction:      dir,
			Quantity:       qty,
			Price:          price,
			Time:           time.Unix(rec.Time, 0),
		})
	}
	return fills, nil
}

// ParquetReader serves window fills from a local directory of hour-aligned
// parquet files (fills_<hour>.parquet). A missing file means no fills were
// recorded for that hour.
type ParquetReader struct {
	dir string
	log *logger.Log
}

func NewParquetReader(cfg *config.Config) *ParquetReader {
	log := logger.GetLogger()
	log.WithComponent("parquet_reader").WithFields(logger.Fields{
		"dir": cfg.Source.Parquet.Dir,
	}).Info("parquet reader initialized")
	return &ParquetReader{dir: cfg.Source.Parquet.Dir, log: log}
}

// FetchFills loads the archive file for the hour starting at windowStart.
func (r *ParquetReader) FetchFills(ctx context.Context, windowStart, windowEnd time.Time) ([]models.Fill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := r.log.WithComponent("parquet_reader").WithFields(logger.Fields{
		"window_start": windowStart.Unix(),
		"window_end":   windowEnd.Unix(),
	})

	path := filepath.Join(r.dir, hourObjectName(windowStart.Unix()))
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Debug("no archive file for window")
		return nil, nil
	}

	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive file %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := pqreader.NewParquetReader(fr, new(fillRecord), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet archive %s: %w", path, err)
	}
	defer pr.ReadStop()

	records := make([]fillRecord, pr.GetNumRows())
	if err := pr.Read(&records); err != nil {
		return nil, fmt.Errorf("failed to decode parquet rows from %s: %w", path, err)
	}

	fills, err := fillsFromRecords(records)
	if err != nil {
		return nil, err
	}

	log.WithFields(logger.Fields{"fills": len(fills)}).Debug("archive window loaded")
	logger.IncrementFetch(len(fills))

	return fills, nil
}

package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type flowStat struct {
	messages int64
	records  int64
}

var (
	errorsQuery  int64
	errorsFetch  int64
	warnsQuery   int64
	warnsFetch   int64
	queriesSeen  int64
	fillsFetched int64
	flows        sync.Map // map[string]*flowStat
)

func recordWarn(component string) {
	if strings.Contains(component, "reader") {
		atomic.AddInt64(&warnsFetch, 1)
	} else if strings.Contains(component, "processor") {
		atomic.AddInt64(&warnsQuery, 1)
	}
}

func recordError(component string) {
	if strings.Contains(component, "reader") {
		atomic.AddInt64(&errorsFetch, 1)
	} else if strings.Contains(component, "processor") {
		atomic.AddInt64(&errorsQuery, 1)
	}
}

// IncrementQueryProcessed bumps the session query counter.
func IncrementQueryProcessed() {
	atomic.AddInt64(&queriesSeen, 1)
	recordFlow("queries", 1)
}

// IncrementFetch records a completed window fetch and the number of fills
// it returned.
func IncrementFetch(fills int) {
	atomic.AddInt64(&fillsFetched, int64(fills))
	recordFlow("window_fetch", fills)
}

func recordFlow(name string, records int) {
	v, _ := flows.LoadOrStore(name, &flowStat{})
	fs := v.(*flowStat)
	atomic.AddInt64(&fs.messages, 1)
	atomic.AddInt64(&fs.records, int64(records))
}

// StartReport begins periodic logging of system and session statistics.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()

	flowData := map[string]map[string]int64{}
	flows.Range(func(k, v any) bool {
		name := k.(string)
		fs := v.(*flowStat)
		flowData[name] = map[string]int64{
			"messages": atomic.LoadInt64(&fs.messages),
			"records":  atomic.LoadInt64(&fs.records),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	fields := Fields{
		"errors_query":  atomic.LoadInt64(&errorsQuery),
		"errors_fetch":  atomic.LoadInt64(&errorsFetch),
		"warns_query":   atomic.LoadInt64(&warnsQuery),
		"warns_fetch":   atomic.LoadInt64(&warnsFetch),
		"queries":       atomic.LoadInt64(&queriesSeen),
		"fills_fetched": atomic.LoadInt64(&fillsFetched),
		"goroutines":    runtime.NumGoroutine(),
		"cpu_percent":   cpuPct,
		"memory_mb":     int64(memStats.Used) / 1024 / 1024,
		"flows":         flowData,
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("Fillflow-CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		{MetricName: aws.String("Fillflow-MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		{MetricName: aws.String("Fillflow-Queries"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&queriesSeen)))},
		{MetricName: aws.String("Fillflow-FillsFetched"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&fillsFetched)))},
		{MetricName: aws.String("Fillflow-ErrorsQuery"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&errorsQuery)))},
		{MetricName: aws.String("Fillflow-ErrorsFetch"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&errorsFetch)))},
		{MetricName: aws.String("Fillflow-WarnsQuery"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&warnsQuery)))},
		{MetricName: aws.String("Fillflow-WarnsFetch"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&warnsFetch)))},
	}

	for name, stats := range flowData {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String("Fillflow-FlowRecords"),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{{Name: aws.String("Flow"), Value: aws.String(name)}},
			Value:      aws.Float64(float64(stats["records"])),
		})
	}

	publishMetrics(ctx, data)
}

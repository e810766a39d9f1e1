// Package metrics wraps datadog-go to facilitate metric recording.
// Naming convention:
// - Internal process time: *.time
// - Error: *.err
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/spf13/viper"

	"github.com/lotmarket/goauction/base/log"
)

// Ender finishes a BumpTime measurement
type Ender interface {
	End()
}

// Service provides interface for metrics
type Service interface {
	BumpSum(key string, val float64, tags ...string)
	BumpHistogram(key string, val float64, tags ...string)
	BumpTime(key string, tags ...string) Ender
}

type statsCli interface {
	Count(name string, value int64, tags []string, rate float64) error
	Histogram(name string, value float64, tags []string, rate float64) error
	TimeInMilliseconds(name string, value float64, tags []string, rate float64) error
}

var (
	initOnce sync.Once
	client   statsCli
)

const (
	ddRate        = 1
	bufferMetrics = 10
)

func initClient() {
	host := viper.GetString("datadog_host")
	if host == "" {
		// no agent configured, keep metrics visible in debug logs
		client = &logClient{}
		return
	}
	addr := fmt.Sprintf("%s:%d", host, 8125)
	cli, err := statsd.NewBuffered(addr, bufferMetrics)
	if err != nil {
		log.Log().WithFields(log.Fields{"addr": addr, "err": err}).Panic("can't talk to datadog agent")
	}
	client = cli
}

// New creates a metric client with the package name as prefix
func New(pkgName string) Service {
	return &metrics{
		pkgName: pkgName,
		tags: []string{
			"env:" + viper.GetString("env_name"),
			"app:" + viper.GetString("app_name"),
		},
	}
}

type metrics struct {
	pkgName string
	tags    []string
}

func (mt *metrics) BumpSum(key string, val float64, tags ...string) {
	initOnce.Do(initClient)
	k := mt.pkgName + "." + key
	if err := client.Count(k, int64(val), append(mt.tags, parseTag(tags)...), ddRate); err != nil {
		log.Log().WithFields(log.Fields{"err": err, "key": k}).Error("Bump fail")
	}
}

func (mt *metrics) BumpHistogram(key string, val float64, tags ...string) {
	initOnce.Do(initClient)
	k := mt.pkgName + "." + key
	if err := client.Histogram(k, val, append(mt.tags, parseTag(tags)...), ddRate); err != nil {
		log.Log().WithFields(log.Fields{"err": err, "key": k}).Error("Bump fail")
	}
}

// BumpTime starts a timer; End() on the returned value records the
// duration:
//
//	defer met.BumpTime("my.function").End()
func (mt *metrics) BumpTime(key string, tags ...string) Ender {
	initOnce.Do(initClient)
	return &timeTracker{
		start: time.Now(),
		key:   mt.pkgName + "." + key,
		tags:  append(mt.tags, parseTag(tags)...),
	}
}

func parseTag(tags []string) []string {
	if len(tags)%2 != 0 {
		log.Log().WithField("tags", tags).Panic("tag length needs to be multiple of 2")
	}
	arr := make([]string, len(tags)/2)
	for i := 0; i < len(tags); i += 2 {
		arr[i/2] = tags[i] + ":" + tags[i+1]
	}
	return arr
}

type timeTracker struct {
	start time.Time
	key   string
	tags  []string
}

func (t *timeTracker) End() {
	dur := float64(time.Since(t.start)) / float64(time.Millisecond)
	if err := client.TimeInMilliseconds(t.key, dur, t.tags, ddRate); err != nil {
		log.Log().WithFields(log.Fields{"err": err, "key": t.key}).Error("Bump fail")
	}
}

// logClient reports metrics to the debug log when no statsd agent is
// configured
type logClient struct{}

func (lc *logClient) Count(name string, value int64, tags []string, rate float64) error {
	log.Log().WithFields(log.Fields{"key": name, "val": value, "tags": tags}).Debug("metric count")
	return nil
}

func (lc *logClient) Histogram(name string, value float64, tags []string, rate float64) error {
	log.Log().WithFields(log.Fields{"key": name, "val": value, "tags": tags}).Debug("metric histogram")
	return nil
}

func (lc *logClient) TimeInMilliseconds(name string, value float64, tags []string, rate float64) error {
	log.Log().WithFields(log.Fields{"key": name, "time_ms": value, "tags": tags}).Debug("metric time")
	return nil
}

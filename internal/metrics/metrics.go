package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for HTTP requests and the job
// pipeline. This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	generationsTotal = make(map[genKey]int64)
	jobsTotal        = make(map[jobKey]int64)

	retentionJobsDeleted int64
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

type genKey struct {
	Variant string
	Success string
}

type jobKey struct {
	Status string
	Kind   string
}

// RecordRequest increments request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordGeneration counts generation attempts per variant. A failed
// gemini attempt followed by a fallback success produces two entries.
func RecordGeneration(variant string, success bool) {
	mu.Lock()
	defer mu.Unlock()

	s := "false"
	if success {
		s = "true"
	}
	generationsTotal[genKey{Variant: variant, Success: s}]++
}

// RecordJobOutcome counts terminal job transitions. Kind is empty for
// completed jobs and the coarse error kind for failed ones.
func RecordJobOutcome(status, kind string) {
	mu.Lock()
	defer mu.Unlock()
	jobsTotal[jobKey{Status: status, Kind: kind}]++
}

// RecordRetentionJobs increments the counter of job records deleted by
// TTL cleanup.
func RecordRetentionJobs(deleted int64) {
	if deleted <= 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	retentionJobsDeleted += deleted
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP tomeforge_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE tomeforge_http_requests_total counter\n")

	// Sort keys for stable output
	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})

	for _, k := range reqKeys {
		v := requestsTotal[k]
		fmt.Fprintf(&b, "tomeforge_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, v)
	}

	b.WriteString("# HELP tomeforge_http_request_duration_ms_sum Total request duration in milliseconds\n")
	b.WriteString("# TYPE tomeforge_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP tomeforge_http_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE tomeforge_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})

	for _, k := range latKeys {
		sum := latencyMsSum[k]
		cnt := latencyMsCount[k]
		fmt.Fprintf(&b, "tomeforge_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, sum)
		fmt.Fprintf(&b, "tomeforge_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, cnt)
	}

	// Generation metrics
	b.WriteString("# HELP tomeforge_generations_total Total campaign generation attempts\n")
	b.WriteString("# TYPE tomeforge_generations_total counter\n")

	var genKeys []genKey
	for k := range generationsTotal {
		genKeys = append(genKeys, k)
	}
	sort.Slice(genKeys, func(i, j int) bool {
		if genKeys[i].Variant != genKeys[j].Variant {
			return genKeys[i].Variant < genKeys[j].Variant
		}
		return genKeys[i].Success < genKeys[j].Success
	})

	for _, k := range genKeys {
		v := generationsTotal[k]
		fmt.Fprintf(&b, "tomeforge_generations_total{variant=\"%s\",success=\"%s\"} %d\n",
			k.Variant, k.Success, v)
	}

	// Job outcome metrics
	b.WriteString("# HELP tomeforge_jobs_total Total terminal job transitions\n")
	b.WriteString("# TYPE tomeforge_jobs_total counter\n")

	var jobKeys []jobKey
	for k := range jobsTotal {
		jobKeys = append(jobKeys, k)
	}
	sort.Slice(jobKeys, func(i, j int) bool {
		if jobKeys[i].Status != jobKeys[j].Status {
			return jobKeys[i].Status < jobKeys[j].Status
		}
		return jobKeys[i].Kind < jobKeys[j].Kind
	})

	for _, k := range jobKeys {
		v := jobsTotal[k]
		fmt.Fprintf(&b, "tomeforge_jobs_total{status=\"%s\",kind=\"%s\"} %d\n",
			k.Status, k.Kind, v)
	}

	// Retention metrics
	b.WriteString("# HELP tomeforge_retention_jobs_deleted_total Total job records deleted by TTL\n")
	b.WriteString("# TYPE tomeforge_retention_jobs_deleted_total counter\n")
	fmt.Fprintf(&b, "tomeforge_retention_jobs_deleted_total %d\n", retentionJobsDeleted)

	return b.String()
}

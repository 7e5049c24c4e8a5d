package logs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/NimbleBrainInc/nimbletools-core/pkg/errors"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/labels"
)

const (
	defaultLimit = 10
	maxLimit     = 1000
)

// Query is a validated log query.
type Query struct {
	// Limit is the maximum number of entries returned; zero means the
	// default of 10
	Limit int

	// Since excludes entries older than this time
	Since *time.Time

	// Until excludes entries newer than this time
	Until *time.Time

	// Level is the minimum severity returned; empty means everything
	Level string

	// PodName restricts the query to a single pod
	PodName string
}

// Validate normalizes the query and rejects out-of-range values.
func (q *Query) Validate() error {
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	if q.Limit < 1 || q.Limit > maxLimit {
		return errors.NewInvalidInputError(
			fmt.Sprintf("limit must be between 1 and %d", maxLimit), nil)
	}
	if q.Level != "" && !IsValidLevel(q.Level) {
		return errors.NewInvalidInputError(
			fmt.Sprintf("unknown level %q", q.Level), nil)
	}
	if q.Since != nil && q.Until != nil && q.Until.Before(*q.Since) {
		return errors.NewInvalidInputError("until must not be before since", nil)
	}
	return nil
}

// Response is the aggregated log view returned to API clients.
type Response struct {
	Logs           []Entry   `json:"logs"`
	Count          int       `json:"count"`
	HasMore        bool      `json:"has_more"`
	QueryTimestamp time.Time `json:"query_timestamp"`
}

// streamFunc opens a log stream for one pod. Split out so tests can
// substitute canned streams; the fake clientset serves a fixed body.
type streamFunc func(ctx context.Context, namespace, pod string, opts *corev1.PodLogOptions) (io.ReadCloser, error)

// Aggregator fans log reads out across the pods of a server and merges
// the results newest-first.
type Aggregator struct {
	client kubernetes.Interface
	stream streamFunc
}

// NewAggregator creates an Aggregator backed by the given clientset.
func NewAggregator(client kubernetes.Interface) *Aggregator {
	a := &Aggregator{client: client}
	a.stream = func(ctx context.Context, namespace, pod string, opts *corev1.PodLogOptions) (io.ReadCloser, error) {
		return a.client.CoreV1().Pods(namespace).GetLogs(pod, opts).Stream(ctx)
	}
	return a
}

// Aggregate collects, filters, and merges log lines from every pod of
// the named server. A server with no pods yields an empty response, not
// an error; resolving whether the server exists is the caller's job.
func (a *Aggregator) Aggregate(ctx context.Context, namespace, serverName string, q Query) (*Response, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	queryTimestamp := time.Now().UTC()

	pods, err := a.client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: labels.ServerSelector(serverName),
	})
	if err != nil {
		return nil, errors.NewTransientError(
			fmt.Sprintf("Failed to get logs for server '%s': cluster request failed", serverName), err)
	}

	var targets []logTarget
	for _, pod := range pods.Items {
		if q.PodName != "" && pod.Name != q.PodName {
			continue
		}
		target := logTarget{pod: pod.Name}
		if len(pod.Spec.Containers) > 0 {
			target.container = pod.Spec.Containers[0].Name
		}
		targets = append(targets, target)
	}
	if len(targets) == 0 {
		return &Response{Logs: []Entry{}, QueryTimestamp: queryTimestamp}, nil
	}

	opts := &corev1.PodLogOptions{
		// Over-fetch per pod so the merged, filtered view can still
		// fill the limit.
		TailLines: int64Ptr(int64(2 * q.Limit)),
	}
	if q.Since != nil {
		opts.SinceTime = &metav1.Time{Time: *q.Since}
	}

	var mu sync.Mutex
	var merged []Entry

	group, groupCtx := errgroup.WithContext(ctx)
	for _, target := range targets {
		group.Go(func() error {
			entries, err := a.collectPodLogs(groupCtx, namespace, target, opts, q, queryTimestamp)
			if err != nil {
				return err
			}
			mu.Lock()
			merged = append(merged, entries...)
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, errors.NewTransientError(
			fmt.Sprintf("Failed to get logs for server '%s': log stream failed", serverName), err)
	}

	sortEntries(merged)

	sourceCount := len(merged)
	if sourceCount > q.Limit {
		merged = merged[:q.Limit]
	}
	if merged == nil {
		merged = []Entry{}
	}

	return &Response{
		Logs:           merged,
		Count:          len(merged),
		HasMore:        sourceCount > q.Limit,
		QueryTimestamp: queryTimestamp,
	}, nil
}

// logTarget names one pod's log source. The container is the first one
// in the pod spec, which is the server container for workloads the
// operator creates.
type logTarget struct {
	pod       string
	container string
}

// collectPodLogs reads one pod's log stream and applies the client-side
// filters the API server cannot.
func (a *Aggregator) collectPodLogs(
	ctx context.Context, namespace string, target logTarget, opts *corev1.PodLogOptions, q Query, queryTimestamp time.Time,
) ([]Entry, error) {
	podOpts := *opts
	podOpts.Container = target.container
	stream, err := a.stream(ctx, namespace, target.pod, &podOpts)
	if err != nil {
		return nil, fmt.Errorf("streaming logs from pod %s: %w", target.pod, err)
	}
	defer stream.Close()

	var entries []Entry
	scanner := bufio.NewScanner(stream)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		entry := parseLine(line, target.pod, queryTimestamp)
		entry.ContainerName = target.container
		if q.Level != "" && !atLeastSeverity(entry.Level, q.Level) {
			continue
		}
		if q.Since != nil && entry.Timestamp.Before(*q.Since) {
			continue
		}
		if q.Until != nil && entry.Timestamp.After(*q.Until) {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading logs from pod %s: %w", target.pod, err)
	}
	return entries, nil
}

// sortEntries orders newest-first, breaking timestamp ties by pod name
// so interleaved output is stable across requests.
func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.After(entries[j].Timestamp)
		}
		return entries[i].PodName < entries[j].PodName
	})
}

func int64Ptr(i int64) *int64 { return &i }

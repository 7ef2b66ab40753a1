package ncbi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/SPGundewar/Delftia-Analysis-tool/internal/assembly"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func useTransport(t *testing.T, fn roundTripperFunc) {
	t.Helper()
	prev := httpClient
	httpClient = &http.Client{Transport: fn}
	t.Cleanup(func() { httpClient = prev })
}

func reportJSON(acc string) string {
	return fmt.Sprintf(`{"accession":%q,"assembly_info":{"assembly_level":"Complete Genome"},"assembly_stats":{"total_sequence_length":"4200000"},"checkm_info":{"completeness":96,"contamination":2}}`, acc)
}

// pagedServer serves n reports split into pages of size per page.
func pagedServer(t *testing.T, n, size int, seen *[]*http.Request) roundTripperFunc {
	return func(r *http.Request) (*http.Response, error) {
		*seen = append(*seen, r)
		start := 0
		if tok := r.URL.Query().Get("page_token"); tok != "" {
			fmt.Sscanf(tok, "opaque-%d", &start)
		}
		end := start + size
		if end > n {
			end = n
		}
		reports := make([]string, 0, size)
		for i := start; i < end; i++ {
			reports = append(reports, reportJSON(fmt.Sprintf("GCF_%d.1", i)))
		}
		next := ""
		if end < n {
			next = fmt.Sprintf(`,"next_page_token":"opaque-%d"`, end)
		}
		return jsonResponse(200, fmt.Sprintf(`{"reports":[%s],"total_count":%d%s}`, strings.Join(reports, ","), n, next)), nil
	}
}

func TestFetchTaxonFollowsPages(t *testing.T) {
	for _, size := range []int{1, 3, 7, 500} {
		var seen []*http.Request
		useTransport(t, pagedServer(t, 7, size, &seen))
		var progress []int
		c := &Client{PageSize: size, OnPage: func(fetched, total int) {
			progress = append(progress, fetched)
			if total != 7 {
				t.Fatalf("expected total 7, got %d", total)
			}
		}}
		res, err := c.FetchTaxon(context.Background(), DefaultTaxonID)
		if err != nil {
			t.Fatalf("page size %d: unexpected error: %v", size, err)
		}
		if len(res.Rows) != 7 {
			t.Fatalf("page size %d: expected 7 rows, got %d", size, len(res.Rows))
		}
		if res.Pages != len(seen) || res.TotalCount != 7 {
			t.Fatalf("page size %d: unexpected result %+v (requests %d)", size, res, len(seen))
		}
		if progress[len(progress)-1] != 7 {
			t.Fatalf("page size %d: expected progress to end at 7, got %v", size, progress)
		}
		for i, r := range res.Rows {
			if want := fmt.Sprintf("GCF_%d.1", i); r.GenBank.String() != want {
				t.Fatalf("page size %d: row %d expected %s, got %s", size, i, want, r.GenBank)
			}
			if r.SizeMb != 4.2 || !r.HighQuality.Value {
				t.Fatalf("page size %d: unexpected row %+v", size, r)
			}
		}
	}
}

func TestFetchTaxonRequestShape(t *testing.T) {
	var seen []*http.Request
	useTransport(t, pagedServer(t, 2, 1, &seen))
	c := &Client{BaseURL: "https://example.test/datasets/v2/", PageSize: 1, APIKey: "secret"}
	if _, err := c.FetchTaxon(context.Background(), "80866"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(seen))
	}
	first := seen[0]
	if first.Method != http.MethodGet || first.URL.Path != "/datasets/v2/genome/taxon/80866/dataset_report" {
		t.Fatalf("unexpected request %s %s", first.Method, first.URL.Path)
	}
	q := first.URL.Query()
	if q.Get("filters.assembly_status") != "latest" || q.Get("filters.exclude_atypical") != "true" || q.Get("page_size") != "1" {
		t.Fatalf("unexpected query %v", q)
	}
	if q.Has("page_token") {
		t.Fatalf("first request must not carry a page token")
	}
	if seen[1].URL.Query().Get("page_token") != "opaque-1" {
		t.Fatalf("expected verbatim page token, got %q", seen[1].URL.Query().Get("page_token"))
	}
	if first.Header.Get("api-key") != "secret" {
		t.Fatalf("expected api-key header")
	}
}

func TestFetchTaxonStopsOnErrorKeepsRows(t *testing.T) {
	calls := 0
	useTransport(t, func(r *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return jsonResponse(200, `{"reports":[`+reportJSON("A")+`,`+reportJSON("B")+`],"next_page_token":"t2"}`), nil
		}
		return jsonResponse(503, "service unavailable"), nil
	})
	res, err := (&Client{}).FetchTaxon(context.Background(), DefaultTaxonID)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != 503 || !strings.Contains(se.Error(), "service unavailable") {
		t.Fatalf("unexpected status error: %v", se)
	}
	if res == nil || len(res.Rows) != 2 || res.Pages != 1 {
		t.Fatalf("expected the first page to be kept, got %+v", res)
	}
	if calls != 2 {
		t.Fatalf("expected no retry, got %d calls", calls)
	}
}

func TestFetchTaxonPolicy(t *testing.T) {
	useTransport(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"reports":[{"assembly_info":{"assembly_level":"Complete Genome"}}]}`), nil
	})
	res, err := (&Client{Policy: assembly.PolicyFail}).FetchTaxon(context.Background(), DefaultTaxonID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Rows[0].HighQuality.String() != "False" {
		t.Fatalf("expected fail policy to reject missing CheckM, got %q", res.Rows[0].HighQuality)
	}
}

func TestFetchTaxonBadJSON(t *testing.T) {
	useTransport(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"reports":`), nil
	})
	res, err := (&Client{}).FetchTaxon(context.Background(), DefaultTaxonID)
	if err == nil || len(res.Rows) != 0 {
		t.Fatalf("expected decode error and no rows, got %v %+v", err, res)
	}
}

func TestFetchTaxonToleratesOddLeafShapes(t *testing.T) {
	calls := 0
	useTransport(t, func(r *http.Request) (*http.Response, error) {
		calls++
		if r.URL.Query().Get("page_token") == "" {
			page := fmt.Sprintf(`{"reports":[%s,{"accession":"B","assembly_info":{"is_type_material":"true"},"assembly_stats":{"busco_score":{"complete":0.99}}}],"next_page_token":"t2"}`, reportJSON("A"))
			return jsonResponse(200, page), nil
		}
		return jsonResponse(200, fmt.Sprintf(`{"reports":[%s]}`, reportJSON("C"))), nil
	})
	res, err := (&Client{}).FetchTaxon(context.Background(), DefaultTaxonID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 || res.Pages != 2 || len(res.Rows) != 3 {
		t.Fatalf("expected 3 rows over 2 pages, got %d rows, %d pages, %d calls", len(res.Rows), res.Pages, calls)
	}
	b := res.Rows[1]
	if b.GenBank.String() != "B" || b.BUSCO.String() != `{"complete":0.99}` || !b.TypeMaterial.Value {
		t.Fatalf("unexpected row B: %+v", b)
	}
}

func TestFetchTaxonUsesCache(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"), time.Hour)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer cache.Close()

	var seen []*http.Request
	useTransport(t, pagedServer(t, 3, 2, &seen))
	c := &Client{PageSize: 2, Cache: cache}
	if _, err := c.FetchTaxon(context.Background(), DefaultTaxonID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// second fetch must not touch the network
	useTransport(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("HTTP should not be called on cached fetch")
		return nil, nil
	})
	res, err := c.FetchTaxon(context.Background(), DefaultTaxonID)
	if err != nil {
		t.Fatalf("unexpected error on cached fetch: %v", err)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("expected 3 cached rows, got %d", len(res.Rows))
	}
}

func TestFetchTaxonDoesNotCacheErrors(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"), time.Hour)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	defer cache.Close()
	useTransport(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(429, "slow down"), nil
	})
	c := &Client{Cache: cache}
	if _, err := c.FetchTaxon(context.Background(), DefaultTaxonID); err == nil {
		t.Fatalf("expected an error")
	}
	if _, ok := cache.Get(c.PageURL(DefaultTaxonID, "")); ok {
		t.Fatalf("error responses must not be cached")
	}
}

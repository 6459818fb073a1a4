package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"xetra/internal/blob"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock() time.Time {
	return time.Date(2022, 4, 15, 9, 30, 5, 0, time.UTC)
}

func newTestCodec(t *testing.T) (*Codec, blob.Backend) {
	t.Helper()
	backend := blob.NewFSBackend(t.TempDir())
	bucket := blob.NewBucket(backend, discardLogger())
	return NewCodec(bucket, "", discardLogger(), WithClock(fixedClock)), backend
}

func putLedger(t *testing.T, backend blob.Backend, content string) {
	t.Helper()
	if err := backend.Put(context.Background(), DefaultKey, []byte(content)); err != nil {
		t.Fatalf("Put ledger: %v", err)
	}
}

func TestLoadAbsent(t *testing.T) {
	codec, _ := newTestCodec(t)

	l, found, err := codec.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Error("Load found = true for a missing ledger")
	}
	if l.Len() != 0 {
		t.Errorf("Load Len = %d, want 0", l.Len())
	}
}

func TestLoadExisting(t *testing.T) {
	codec, backend := newTestCodec(t)
	putLedger(t, backend, "source_data,datetime_of_processing\n"+
		"2022-04-12,2022-04-02 123323\n"+
		"2022-04-13,2022-04-02 123323\n"+
		"2022-04-12,2022-04-03 080000\n")

	l, found, err := codec.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatal("Load found = false, want true")
	}
	if l.Len() != 3 {
		t.Errorf("Len = %d, want 3 (duplicates kept)", l.Len())
	}
	if got := strings.Join(l.Dates(), ","); got != "2022-04-12,2022-04-13" {
		t.Errorf("Dates = %s, want 2022-04-12,2022-04-13", got)
	}
	if !l.Has("2022-04-13") || l.Has("2022-04-14") {
		t.Error("Has returned the wrong membership")
	}
	if got := l.Entries()[1].ProcessedAt; got != "2022-04-02 123323" {
		t.Errorf("Entries()[1].ProcessedAt = %q", got)
	}
}

func TestLoadMalformed(t *testing.T) {
	cases := map[string]string{
		"wrong column": "bad_column_name,datetime_of_processing\n2022-04-02,2022-04-02 123323\n",
		"bad date":     "source_data,datetime_of_processing\n02.04.2022,2022-04-02 123323\n",
		"empty date":   "source_data,datetime_of_processing\n,2022-04-02 123323\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			codec, backend := newTestCodec(t)
			putLedger(t, backend, content)

			_, _, err := codec.Load(context.Background())
			if !errors.Is(err, ErrMalformedLedger) {
				t.Errorf("Load error = %v, want ErrMalformedLedger", err)
			}
		})
	}
}

func TestAppendNoLedger(t *testing.T) {
	ctx := context.Background()
	codec, backend := newTestCodec(t)

	if err := codec.Append(ctx, []string{"2022-02-12", "2022-02-13"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	data, err := backend.Get(ctx, DefaultKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := "source_data,datetime_of_processing\n" +
		"2022-02-12,2022-04-15 093005\n" +
		"2022-02-13,2022-04-15 093005\n"
	if string(data) != want {
		t.Errorf("ledger object =\n%s\nwant\n%s", data, want)
	}
}

func TestAppendRoundTrip(t *testing.T) {
	ctx := context.Background()
	codec, backend := newTestCodec(t)
	putLedger(t, backend, "source_data,datetime_of_processing\n"+
		"2022-04-12,2022-04-02 123323\n"+
		"2022-04-13,2022-04-02 123323\n")

	if err := codec.Append(ctx, []string{"2022-04-13", "2022-04-14"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	l, found, err := codec.Load(ctx)
	if err != nil || !found {
		t.Fatalf("Load = found %v, err %v", found, err)
	}
	var got []string
	for _, e := range l.Entries() {
		got = append(got, e.Date)
	}
	if strings.Join(got, ",") != "2022-04-12,2022-04-13,2022-04-13,2022-04-14" {
		t.Errorf("entries = %v, want old rows followed by new rows", got)
	}
	if strings.Join(l.Dates(), ",") != "2022-04-12,2022-04-13,2022-04-14" {
		t.Errorf("Dates = %v, want union of old and new", l.Dates())
	}
	if l.Entries()[0].ProcessedAt != "2022-04-02 123323" {
		t.Errorf("existing ProcessedAt rewritten to %q", l.Entries()[0].ProcessedAt)
	}
}

func TestAppendEmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	codec, backend := newTestCodec(t)

	if err := codec.Append(ctx, nil); err != nil {
		t.Fatalf("Append(nil): %v", err)
	}
	if _, err := backend.Get(ctx, DefaultKey); !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("Append(nil) wrote a ledger: Get error = %v", err)
	}
}

func TestAppendRejectsBadDate(t *testing.T) {
	codec, _ := newTestCodec(t)
	if err := codec.Append(context.Background(), []string{"2022/04/12"}); err == nil {
		t.Error("Append with a malformed date should fail")
	}
}

func TestAppendMalformedLedger(t *testing.T) {
	codec, backend := newTestCodec(t)
	putLedger(t, backend, "wrong,columns\na,b\n")

	err := codec.Append(context.Background(), []string{"2022-04-12"})
	if !errors.Is(err, ErrMalformedLedger) {
		t.Errorf("Append error = %v, want ErrMalformedLedger", err)
	}
}

package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2024-10-10T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}

func TestDayStart(t *testing.T) {
    loc, err := time.LoadLocation("America/New_York")
    if err != nil {
        t.Fatal(err)
    }
    // 01:30 UTC is still the previous calendar day in New York.
    in := time.Date(2024, 10, 10, 1, 30, 0, 0, time.UTC)
    got := DayStart(in, loc)
    want := time.Date(2024, 10, 9, 0, 0, 0, 0, loc)
    if !got.Equal(want) {
        t.Fatalf("got %v want %v", got, want)
    }
}
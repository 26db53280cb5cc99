package ui

import "testing"

func TestDetermineLayoutMode(t *testing.T) {
	cases := []struct {
		cols, rows int
		want       LayoutMode
	}{
		{120, 30, LayoutWide},
		{100, 24, LayoutWide},
		{80, 30, LayoutCompact},
		{99, 40, LayoutCompact},
		{59, 30, LayoutTooSmall},
		{100, 17, LayoutTooSmall},
	}
	for _, tc := range cases {
		if got := DetermineLayoutMode(tc.cols, tc.rows); got != tc.want {
			t.Fatalf("DetermineLayoutMode(%d, %d) = %v, want %v", tc.cols, tc.rows, got, tc.want)
		}
	}
}

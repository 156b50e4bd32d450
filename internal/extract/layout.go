package extract

import (
	"sort"
	"strings"

	"github.com/labsafe/sdsassist/internal/core/domain"
)

// fragment is one positioned text run from the PDF content stream.
// Coordinates are PDF points with the origin at the bottom-left.
type fragment struct {
	text string
	x    float64
	y    float64
	w    float64
	size float64
}

// line is a horizontal run of fragments sharing a baseline.
type line struct {
	frags []fragment
	y     float64
	size  float64
}

// Column split tuning. A second column is only accepted when the gap in
// the x-start distribution is wide and both sides carry real mass.
const (
	minColumnGapRatio  = 0.08
	minColumnMassRatio = 0.2
)

// assemblePage orders fragments into reading order and groups them into
// blocks. Multi-column layouts are detected by clustering x-coordinates;
// columns read left to right, top to bottom within each column.
func assemblePage(frags []fragment, docID string, pageNo int) []domain.Block {
	if len(frags) == 0 {
		return nil
	}

	var blocks []domain.Block
	for _, col := range splitColumns(frags) {
		lines := buildLines(col)
		blocks = append(blocks, buildBlocks(lines, docID, pageNo)...)
	}
	return blocks
}

// splitColumns partitions fragments into one or two columns. The split
// point is the widest gap in the sorted x-start distribution within the
// middle of the page; narrow or lopsided gaps keep the page single-column.
func splitColumns(frags []fragment) [][]fragment {
	width := 0.0
	for _, f := range frags {
		if right := f.x + f.w; right > width {
			width = right
		}
	}
	if width <= 0 || len(frags) < 8 {
		return [][]fragment{frags}
	}

	xs := make([]float64, len(frags))
	for i, f := range frags {
		xs[i] = f.x
	}
	sort.Float64s(xs)

	bestGap, bestBoundary, leftCount := 0.0, 0.0, 0
	for i := 1; i < len(xs); i++ {
		gap := xs[i] - xs[i-1]
		mid := (xs[i] + xs[i-1]) / 2
		if mid < width*0.25 || mid > width*0.75 {
			continue
		}
		if gap > bestGap {
			bestGap = gap
			bestBoundary = mid
			leftCount = i
		}
	}

	minMass := int(float64(len(frags)) * minColumnMassRatio)
	if bestGap < width*minColumnGapRatio || leftCount < minMass || len(frags)-leftCount < minMass {
		return [][]fragment{frags}
	}

	var left, right []fragment
	for _, f := range frags {
		if f.x < bestBoundary {
			left = append(left, f)
		} else {
			right = append(right, f)
		}
	}
	return [][]fragment{left, right}
}

// buildLines groups fragments sharing a baseline, ordered top to bottom.
// PDF y grows upward, so higher y comes first.
func buildLines(frags []fragment) []line {
	sorted := make([]fragment, len(frags))
	copy(sorted, frags)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].y != sorted[j].y {
			return sorted[i].y > sorted[j].y
		}
		return sorted[i].x < sorted[j].x
	})

	var lines []line
	for _, f := range sorted {
		tol := f.size * 0.45
		if tol < 2 {
			tol = 2
		}
		if n := len(lines); n > 0 && lines[n-1].y-f.y <= tol {
			lines[n-1].frags = append(lines[n-1].frags, f)
			continue
		}
		lines = append(lines, line{frags: []fragment{f}, y: f.y, size: f.size})
	}

	for i := range lines {
		sort.SliceStable(lines[i].frags, func(a, b int) bool {
			return lines[i].frags[a].x < lines[i].frags[b].x
		})
	}
	return lines
}

// buildBlocks merges consecutive lines into blocks, splitting on vertical
// gaps noticeably larger than the running line spacing.
func buildBlocks(lines []line, docID string, pageNo int) []domain.Block {
	if len(lines) == 0 {
		return nil
	}

	var blocks []domain.Block
	start := 0
	for i := 1; i <= len(lines); i++ {
		if i < len(lines) {
			gap := lines[i-1].y - lines[i].y
			limit := lines[i-1].size * 1.8
			if limit < 6 {
				limit = 6
			}
			if gap <= limit {
				continue
			}
		}
		blocks = append(blocks, blockFromLines(lines[start:i], docID, pageNo))
		start = i
	}
	return blocks
}

func blockFromLines(lines []line, docID string, pageNo int) domain.Block {
	var sb strings.Builder
	region := domain.Region{X0: 1e18, Y0: 1e18, X1: -1e18, Y1: -1e18}
	tabular := 0

	for li, l := range lines {
		if li > 0 {
			sb.WriteByte('\n')
		}
		wideGaps := 0
		for fi, f := range l.frags {
			if fi > 0 {
				prev := l.frags[fi-1]
				gap := f.x - (prev.x + prev.w)
				if gap > f.size*2 {
					wideGaps++
				}
				if gap > f.size*0.25 {
					sb.WriteByte(' ')
				}
			}
			sb.WriteString(f.text)

			if f.x < region.X0 {
				region.X0 = f.x
			}
			if f.y < region.Y0 {
				region.Y0 = f.y
			}
			if right := f.x + f.w; right > region.X1 {
				region.X1 = right
			}
			if top := f.y + f.size; top > region.Y1 {
				region.Y1 = top
			}
		}
		if wideGaps >= 2 {
			tabular++
		}
	}

	return domain.Block{
		DocumentID:     docID,
		Page:           pageNo,
		Region:         &region,
		Text:           sb.String(),
		Method:         domain.ExtractionDigital,
		Confidence:     1.0,
		TableCandidate: tabular >= 2 && tabular*2 >= len(lines),
	}
}

package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	tactics "github.com/cmessoftware/chess-trainer-sub000/pkg/tactics"
)

type labelStats struct {
	byPhase map[string]int
	total   int
}

type bucketStats struct {
	moves    int
	blunders int
	mistakes int
}

// main prints CSV summaries of a tactical dataset: error-label distribution
// per game phase, motif counts, and blunder rates per mover rating bucket.
func main() {
	inputPath := flag.String("input", "tactics.parquet", "input parquet dataset")
	binSize := flag.Int("elo-bin-size", 100, "mover rating bucket size")
	parallel := flag.Int64("parallel", 4, "parquet read parallelism")
	flag.Parse()

	if *binSize <= 0 {
		fatal(fmt.Errorf("elo-bin-size must be > 0"))
	}

	records, err := tactics.ReadDataset(*inputPath, *parallel)
	if err != nil {
		fatal(err)
	}

	labels := make(map[string]*labelStats)
	buckets := make(map[int]*bucketStats)
	patterns := make(map[string]int)
	forced := 0
	mateThreats := 0

	for _, record := range records {
		ls, ok := labels[record.ErrorLabel]
		if !ok {
			ls = &labelStats{byPhase: make(map[string]int)}
			labels[record.ErrorLabel] = ls
		}
		ls.total++
		ls.byPhase[record.Phase]++

		if record.Pattern != "" {
			patterns[record.Pattern]++
		}
		if record.ForcedMove {
			forced++
		}
		if record.ThreatensMate {
			mateThreats++
		}

		if record.MoverElo > 0 {
			bucketStart := (int(record.MoverElo) / *binSize) * *binSize
			bs, ok := buckets[bucketStart]
			if !ok {
				bs = &bucketStats{}
				buckets[bucketStart] = bs
			}
			bs.moves++
			switch record.ErrorLabel {
			case "blunder":
				bs.blunders++
			case "mistake":
				bs.mistakes++
			}
		}
	}

	fmt.Printf("rows,%d\nforced_moves,%d\nmate_threats,%d\n\n", len(records), forced, mateThreats)

	fmt.Println("error_label,phase,count")
	for _, label := range sortedKeys(labels) {
		ls := labels[label]
		for _, phase := range sortedIntMapKeys(ls.byPhase) {
			fmt.Printf("%s,%s,%d\n", label, phase, ls.byPhase[phase])
		}
	}

	fmt.Println()
	fmt.Println("pattern,count")
	for _, pattern := range sortedIntMapKeys(patterns) {
		fmt.Printf("%s,%d\n", pattern, patterns[pattern])
	}

	fmt.Println()
	fmt.Println("elo_bucket_from,elo_bucket_to,moves,blunders,mistakes,blunder_rate")
	starts := make([]int, 0, len(buckets))
	for start := range buckets {
		starts = append(starts, start)
	}
	sort.Ints(starts)
	for _, start := range starts {
		bs := buckets[start]
		rate := 0.0
		if bs.moves > 0 {
			rate = float64(bs.blunders) / float64(bs.moves)
		}
		fmt.Printf("%d,%d,%d,%d,%d,%.6f\n", start, start+*binSize, bs.moves, bs.blunders, bs.mistakes, rate)
	}
}

func sortedKeys(m map[string]*labelStats) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedIntMapKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

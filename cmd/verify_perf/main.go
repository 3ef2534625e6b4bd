package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/yago-naga/yago3-sub001/pkg/archive"
	"github.com/yago-naga/yago3-sub001/pkg/deduce"
	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/factstore"
	"github.com/yago-naga/yago3-sub001/pkg/merge"
	"github.com/yago-naga/yago3-sub001/pkg/rules"
	"github.com/yago-naga/yago3-sub001/pkg/theme"
)

// generate builds a random forest of parent links plus a type per person.
func generate(rng *rand.Rand, people int) []fact.Fact {
	facts := make([]fact.Fact, 0, 2*people)
	for i := 0; i < people; i++ {
		p := fmt.Sprintf("<Person_%d>", i)
		facts = append(facts, fact.New(p, fact.Type, "<person>"))
		if i > 0 {
			parent := fmt.Sprintf("<Person_%d>", rng.Intn(i))
			facts = append(facts, fact.New(p, "<hasParent>", parent))
		}
	}
	return facts
}

func timed(name string, fn func() error) {
	start := time.Now()
	if err := fn(); err != nil {
		log.Fatalf("%s: %v", name, err)
	}
	fmt.Printf("%-28s %v\n", name, time.Since(start))
}

func main() {
	people := flag.Int("people", 20000, "number of synthetic people")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(*seed))
	facts := generate(rng, *people)
	store := factstore.FromFacts(facts...)
	fmt.Printf("Generated %d facts\n", store.Len())

	rs := []*rules.Rule{
		rules.MustRule("?x <hasParent> ?y", "?y <hasChild> ?x"),
		rules.MustRule("?x <hasParent> ?y; ?y <hasParent> ?z", "?x <hasGrandparent> ?z"),
		rules.MustRule("?x rdf:type <person>; ?x <hasParent> ?y", "?y rdf:type <parent>"),
	}

	for _, strategy := range []deduce.Strategy{deduce.Naive{}, deduce.Indexed{}} {
		ev, err := deduce.NewEvaluator(nil, strategy)
		if err != nil {
			log.Fatal(err)
		}
		timed("evaluate ("+strategy.Name()+")", func() error {
			res, err := ev.Run(ctx, store, rs)
			if err == nil {
				fmt.Printf("  derived %d facts\n", res.Facts.Len())
			}
			return err
		})
	}

	dir, err := os.MkdirTemp("", "yago-perf-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	for _, compressed := range []bool{false, true} {
		t := theme.New(fmt.Sprintf("people_s2_%v", compressed), "")
		timed(fmt.Sprintf("write theme (s2=%v)", compressed), func() error {
			w, err := t.Create(dir, compressed)
			if err != nil {
				return err
			}
			if err := w.WriteAll(facts); err != nil {
				w.Abort()
				return err
			}
			return w.Close()
		})
		timed(fmt.Sprintf("read theme (s2=%v)", compressed), func() error {
			_, err := t.FactCollection(ctx, dir)
			return err
		})
	}

	timed("merge two themes", func() error {
		m := &merge.Merger{
			Name: "perf",
			Inputs: []merge.Source{
				merge.FromTheme(theme.New("people_s2_true", ""), dir),
				merge.FromTheme(theme.New("people_s2_false", ""), dir),
			},
		}
		res, err := m.Run(ctx)
		if err == nil {
			fmt.Printf("  merged %d facts\n", res.Store.Len())
		}
		return err
	})

	a, err := archive.Open(archive.DefaultConfig(filepath.Join(dir, "archive")))
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()
	timed("archive import", func() error {
		_, err := a.Import(ctx, theme.New("people_s2_false", ""), dir)
		return err
	})
	timed("archive scan by relation", func() error {
		out, err := a.Facts(ctx, "people_s2_false", "", "<hasParent>", "", 0)
		if err == nil {
			fmt.Printf("  scanned %d facts\n", len(out))
		}
		return err
	})
}

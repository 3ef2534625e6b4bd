package archive

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/dgraph-io/badger/v4"

	"github.com/yago-naga/yago3-sub001/pkg/dict"
	"github.com/yago-naga/yago3-sub001/pkg/fact"
	"github.com/yago-naga/yago3-sub001/pkg/keys"
)

// scanStrategy is the index and prefix chosen for a scan.
type scanStrategy struct {
	index  byte
	prefix []byte
}

// selectScanStrategy picks the index whose key starts with the bound
// components: SRO when the subject is bound, ORS when the object is bound,
// RSO when only the relation is bound, SRO over the whole theme otherwise.
func selectScanStrategy(themeID, s, r, o uint64) scanStrategy {
	switch {
	case s != 0:
		return scanStrategy{keys.SROPrefix, keys.Prefix(keys.SROPrefix, themeID, s, r)}
	case o != 0:
		return scanStrategy{keys.ORSPrefix, keys.Prefix(keys.ORSPrefix, themeID, o, r)}
	case r != 0:
		return scanStrategy{keys.RSOPrefix, keys.Prefix(keys.RSOPrefix, themeID, r, 0)}
	default:
		return scanStrategy{keys.SROPrefix, keys.Prefix(keys.SROPrefix, themeID, 0, 0)}
	}
}

// resolve looks up bound components; ok is false if one was never interned,
// in which case nothing can match.
func (a *Archive) resolve(components ...string) (ids []uint64, ok bool, err error) {
	ids = make([]uint64, len(components))
	for i, c := range components {
		if c == "" {
			continue
		}
		id, err := a.dict.GetID(c)
		if errors.Is(err, dict.ErrNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		ids[i] = uint64(id)
	}
	return ids, true, nil
}

// Scan returns the facts of a theme matching the bound components; an empty
// component is a wildcard. Facts carry their identifier.
func (a *Archive) Scan(ctx context.Context, themeName, s, r, o string) iter.Seq2[fact.Fact, error] {
	return func(yield func(fact.Fact, error) bool) {
		if _, err := a.Theme(themeName); err != nil {
			yield(fact.Fact{}, err)
			return
		}
		ids, ok, err := a.resolve(themeName, s, r, o)
		if err != nil {
			yield(fact.Fact{}, err)
			return
		}
		if !ok {
			return
		}
		themeID, sID, rID, oID := ids[0], ids[1], ids[2], ids[3]
		strategy := selectScanStrategy(themeID, sID, rID, oID)

		txn := a.db.NewTransaction(false)
		defer txn.Discard()
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(strategy.prefix); it.ValidForPrefix(strategy.prefix); it.Next() {
			select {
			case <-ctx.Done():
				yield(fact.Fact{}, ctx.Err())
				return
			default:
			}

			_, fs, fr, fo, ok := keys.Decode(it.Item().Key())
			if !ok {
				continue
			}
			if (sID != 0 && fs != sID) || (rID != 0 && fr != rID) || (oID != 0 && fo != oID) {
				continue
			}
			f, err := a.decode(fs, fr, fo)
			if err != nil {
				yield(fact.Fact{}, err)
				return
			}
			if !yield(f, nil) {
				return
			}
		}
	}
}

func (a *Archive) decode(s, r, o uint64) (fact.Fact, error) {
	var c [3]string
	for i, id := range [3]uint64{s, r, o} {
		str, err := a.dict.GetString(dict.ID(id))
		if err != nil {
			return fact.Fact{}, fmt.Errorf("failed to resolve ID %d: %w", id, err)
		}
		c[i] = str
	}
	return fact.New(c[0], c[1], c[2]).WithID(), nil
}

// Facts collects up to limit facts of a scan; limit 0 means all.
func (a *Archive) Facts(ctx context.Context, themeName, s, r, o string, limit int) ([]fact.Fact, error) {
	var out []fact.Fact
	for f, err := range a.Scan(ctx, themeName, s, r, o) {
		if err != nil {
			return nil, err
		}
		out = append(out, f)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

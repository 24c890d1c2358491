// Copyright 2025 Gerry Miller <gerry@gerrymiller.com>
//
// Licensed under the MIT License.
// See LICENSE file in the project root for full license information.

package retrieval

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"workspace-assistant/pkg/vectorstore"
)

// tokenPattern matches runs of word characters, mirroring the
// lowercase-and-split-on-non-word-characters tokenization used across the
// lexical and rerank stages.
var tokenPattern = regexp.MustCompile(`\w+`)

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// KeywordRetriever implements BM25 lexical search over the chunks of a
// single workspace. Keeping the tokenized corpus in memory (rather than
// delegating scoring to a general-purpose full-text engine) is what lets the
// k1/b parameters and the exact IDF formula stay configurable and
// reproducible; see the pkg/retrieval entry in DESIGN.md for why this one
// stage stays hand-rolled instead of importing a search library.
type KeywordRetriever struct {
	mu    sync.RWMutex
	docs  map[string]map[string]vectorstore.Document
	terms map[string]map[string][]string
	k1    float64
	b     float64
}

// NewKeywordRetriever creates a keyword retriever with the given BM25
// parameters. Zero values fall back to the standard k1=1.5, b=0.75.
func NewKeywordRetriever(k1, b float64) *KeywordRetriever {
	if k1 <= 0 {
		k1 = 1.5
	}
	if b <= 0 {
		b = 0.75
	}
	return &KeywordRetriever{
		docs:  make(map[string]map[string]vectorstore.Document),
		terms: make(map[string]map[string][]string),
		k1:    k1,
		b:     b,
	}
}

// Index adds or replaces documents in the lexical corpus for a workspace.
// Called by the ingestion pipeline alongside the vector store insert so the
// two indices stay in sync.
func (k *KeywordRetriever) Index(ctx context.Context, workspaceID string, docs []vectorstore.Document) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, ok := k.docs[workspaceID]; !ok {
		k.docs[workspaceID] = make(map[string]vectorstore.Document)
		k.terms[workspaceID] = make(map[string][]string)
	}
	for _, d := range docs {
		k.docs[workspaceID][d.ID] = d
		k.terms[workspaceID][d.ID] = tokenize(d.Content)
	}
	return nil
}

// Delete removes documents from the lexical corpus for a workspace.
func (k *KeywordRetriever) Delete(ctx context.Context, workspaceID string, ids []string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	wdocs, ok := k.docs[workspaceID]
	if !ok {
		return nil
	}
	for _, id := range ids {
		delete(wdocs, id)
		delete(k.terms[workspaceID], id)
	}
	return nil
}

// Search ranks the workspace's chunks against query using BM25 and returns
// the top topK, highest score first.
func (k *KeywordRetriever) Search(ctx context.Context, workspaceID, query string, topK int) ([]vectorstore.Document, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return []vectorstore.Document{}, nil
	}
	queryTermSet := make(map[string]bool, len(queryTerms))
	for _, t := range queryTerms {
		queryTermSet[t] = true
	}

	wdocs := k.docs[workspaceID]
	wterms := k.terms[workspaceID]
	n := len(wdocs)
	if n == 0 {
		return []vectorstore.Document{}, nil
	}

	totalLen := 0
	df := make(map[string]int, len(queryTermSet))
	for id, tokens := range wterms {
		if _, ok := wdocs[id]; !ok {
			continue
		}
		totalLen += len(tokens)
		seen := make(map[string]bool, len(queryTermSet))
		for _, t := range tokens {
			if queryTermSet[t] && !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}
	avgdl := float64(totalLen) / float64(n)

	idf := make(map[string]float64, len(queryTermSet))
	for t := range queryTermSet {
		idf[t] = math.Log((float64(n)-float64(df[t])+0.5)/(float64(df[t])+0.5) + 1.0)
	}

	type scored struct {
		doc   vectorstore.Document
		score float64
	}
	results := make([]scored, 0, n)
	for id, doc := range wdocs {
		tokens := wterms[id]
		tf := make(map[string]int, len(queryTermSet))
		for _, t := range tokens {
			if queryTermSet[t] {
				tf[t]++
			}
		}
		if len(tf) == 0 {
			continue
		}

		docLen := float64(len(tokens))
		score := 0.0
		for t := range queryTermSet {
			f := float64(tf[t])
			if f == 0 {
				continue
			}
			numerator := f * (k.k1 + 1.0)
			denominator := f + k.k1*(1.0-k.b+k.b*(docLen/avgdl))
			score += idf[t] * (numerator / denominator)
		}
		if score <= 0 {
			continue
		}
		results = append(results, scored{doc: doc, score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].doc.ID < results[j].doc.ID
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	out := make([]vectorstore.Document, len(results))
	for i, r := range results {
		d := r.doc
		d.Score = float32(r.score)
		out[i] = d
	}
	return out, nil
}

// Name returns the retriever name.
func (k *KeywordRetriever) Name() string {
	return "keyword"
}

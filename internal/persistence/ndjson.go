// Package persistence implements fact persistence (SPEC_FULL.md §6,
// §11, §12): an NDJSON fact-log codec supporting both the arity-2
// {subject,relation,object} convention and the richer
// {operator,args[],polarity} form, plus optional SQLite vector-intern
// and Neo4j theory-layer mirrors.
//
// The NDJSON codec is grounded on the teacher's internal/storage
// package's JSON marshalling conventions (encoding/json throughout,
// one record per line); the mirrors adapt
// internal/storage/sqlite.go and internal/knowledge/neo4j_client.go
// respectively to this engine's fact/theory shapes.
package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"unified-thinking/internal/types"
	"unified-thinking/internal/vectorspace"
)

// arity2Record is the compact {subject,relation,object} convention
// for binary facts (§6).
type arity2Record struct {
	Subject  string `json:"subject"`
	Relation string `json:"relation"`
	Object   string `json:"object"`
}

// richRecord is the general {operator,args[],polarity} convention,
// used for any arity and for negated facts.
type richRecord struct {
	Operator string   `json:"operator"`
	Args     []string `json:"args"`
	Polarity string   `json:"polarity"`
	Name     string   `json:"name,omitempty"`
}

// WriteNDJSON serialises facts one per line. Binary, asserted facts
// are written in the compact arity-2 convention; everything else
// (higher arity, negated, or named) uses the richer form.
func WriteNDJSON(w io.Writer, facts []*types.Fact) error {
	enc := json.NewEncoder(w)
	for _, f := range facts {
		if len(f.Args) == 2 && f.Polarity == types.Asserted && f.Name == "" && !f.Args[0].IsCompound() && !f.Args[1].IsCompound() {
			if err := enc.Encode(arity2Record{
				Subject:  f.Args[0].Text(),
				Relation: string(f.Operator),
				Object:   f.Args[1].Text(),
			}); err != nil {
				return fmt.Errorf("failed to write fact %s: %w", f.Key(), err)
			}
			continue
		}
		args := make([]string, len(f.Args))
		for i, a := range f.Args {
			args[i] = a.Text()
		}
		polarity := "asserted"
		if f.Polarity == types.Negated {
			polarity = "negated"
		}
		if err := enc.Encode(richRecord{
			Operator: string(f.Operator),
			Args:     args,
			Polarity: polarity,
			Name:     string(f.Name),
		}); err != nil {
			return fmt.Errorf("failed to write fact %s: %w", f.Key(), err)
		}
	}
	return nil
}

// ReadNDJSON deserialises a fact log, reconstituting each fact's
// vector deterministically from (operator, args) via symbols — never
// stored on disk (§6: "reloads reconstitute vector deterministically
// from the identifiers").
func ReadNDJSON(r io.Reader, symbols *vectorspace.SymbolTable) ([]*types.Fact, error) {
	var out []*types.Fact
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var probe map[string]json.RawMessage
		if err := json.Unmarshal(line, &probe); err != nil {
			return nil, fmt.Errorf("failed to parse fact record: %w", err)
		}

		var f *types.Fact
		if _, ok := probe["subject"]; ok {
			var rec arity2Record
			if err := json.Unmarshal(line, &rec); err != nil {
				return nil, fmt.Errorf("failed to parse arity-2 record: %w", err)
			}
			args := []types.ArgTerm{types.Ident(types.Identifier(rec.Subject)), types.Ident(types.Identifier(rec.Object))}
			f = &types.Fact{
				Operator: types.Identifier(rec.Relation),
				Args:     args,
				Polarity: types.Asserted,
				Metadata: types.FactMetadata{Operator: types.Identifier(rec.Relation), Args: args},
			}
		} else {
			var rec richRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return nil, fmt.Errorf("failed to parse fact record: %w", err)
			}
			args := make([]types.ArgTerm, len(rec.Args))
			for i, a := range rec.Args {
				args[i] = types.Ident(types.Identifier(a))
			}
			polarity := types.Asserted
			if rec.Polarity == "negated" {
				polarity = types.Negated
			}
			f = &types.Fact{
				Operator: types.Identifier(rec.Operator),
				Args:     args,
				Polarity: polarity,
				Metadata: types.FactMetadata{Operator: types.Identifier(rec.Operator), Args: args},
				Name:     types.Identifier(rec.Name),
			}
		}

		f.Vector = symbols.EncodeFact(f.Operator, f.Args)
		out = append(out, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan fact log: %w", err)
	}
	return out, nil
}

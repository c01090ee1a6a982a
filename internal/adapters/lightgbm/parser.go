package lightgbm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Parser limits.
const (
	maxLineBytes = 64 << 20 // feature_infos lines grow with the feature count
	endOfTrees   = "end of trees"
)

// LoadFile reads and parses the model stored at path.
func LoadFile(path string) (*Ensemble, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	e, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	return e, nil
}

// Parse reads a LightGBM text model (format v2, v3 or v4).
func Parse(r io.Reader) (*Ensemble, error) {
	header, blocks, err := scan(r)
	if err != nil {
		return nil, err
	}

	e := &Ensemble{averageOutput: has(header, "average_output")}

	e.version = header["version"]
	switch e.version {
	case "v2", "v3", "v4":
	case "":
		return nil, fmt.Errorf("%w: missing version", ErrParse)
	default:
		return nil, fmt.Errorf("%w: format version %q", ErrUnsupported, e.version)
	}

	if n, err := intParam(header, "num_class", 1); err != nil {
		return nil, err
	} else if n != 1 {
		return nil, fmt.Errorf("%w: num_class=%d, only single-output models are supported", ErrUnsupported, n)
	}
	if n, err := intParam(header, "num_tree_per_iteration", 1); err != nil {
		return nil, err
	} else if n != 1 {
		return nil, fmt.Errorf("%w: num_tree_per_iteration=%d", ErrUnsupported, n)
	}

	maxIdx, err := intParam(header, "max_feature_idx", -1)
	if err != nil {
		return nil, err
	}
	if maxIdx < 0 {
		return nil, fmt.Errorf("%w: missing max_feature_idx", ErrParse)
	}
	e.numFeatures = maxIdx + 1

	if names, ok := header["feature_names"]; ok {
		e.featureNames = strings.Fields(names)
		if len(e.featureNames) != e.numFeatures {
			return nil, fmt.Errorf("%w: %d feature names for %d features", ErrParse, len(e.featureNames), e.numFeatures)
		}
	}

	e.objective = header["objective"]
	if e.sigmoid, err = link(e.objective); err != nil {
		return nil, err
	}

	if sizes, ok := header["tree_sizes"]; ok && len(strings.Fields(sizes)) != len(blocks) {
		return nil, fmt.Errorf("%w: tree_sizes lists %d trees, found %d", ErrParse, len(strings.Fields(sizes)), len(blocks))
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: no trees", ErrParse)
	}

	e.trees = make([]tree, 0, len(blocks))
	for i, block := range blocks {
		t, err := parseTree(block, e.numFeatures)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		e.trees = append(e.trees, t)
	}
	return e, nil
}

// scan splits the document into header parameters and one parameter map per
// Tree= block. Everything after "end of trees" is ignored.
func scan(r io.Reader) (map[string]string, []map[string]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	header := make(map[string]string)
	var (
		blocks []map[string]string
		cur    map[string]string
		first  = true
		ended  bool
	)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if first {
			if line != "tree" {
				return nil, nil, fmt.Errorf("%w: expected \"tree\" header, got %q", ErrParse, truncate(line))
			}
			first = false
			continue
		}
		if line == endOfTrees {
			ended = true
			break
		}
		key, val, ok := strings.Cut(line, "=")
		if key == "Tree" && ok {
			cur = make(map[string]string)
			blocks = append(blocks, cur)
			continue
		}
		switch {
		case cur != nil && !ok:
			return nil, nil, fmt.Errorf("%w: unexpected line %q in tree %d", ErrParse, truncate(line), len(blocks)-1)
		case cur != nil:
			cur[key] = val
		default:
			// Header flags such as average_output have no value.
			header[key] = val
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if first {
		return nil, nil, fmt.Errorf("%w: empty model", ErrParse)
	}
	if !ended {
		return nil, nil, fmt.Errorf("%w: missing %q marker", ErrParse, endOfTrees)
	}
	return header, blocks, nil
}

// link returns the sigmoid scale for a probability objective.
func link(objective string) (float64, error) {
	fields := strings.Fields(objective)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: missing objective", ErrParse)
	}
	switch fields[0] {
	case "binary":
		sigmoid := 1.0
		for _, f := range fields[1:] {
			if v, ok := strings.CutPrefix(f, "sigmoid:"); ok {
				s, err := strconv.ParseFloat(v, 64)
				if err != nil || s <= 0 {
					return 0, fmt.Errorf("%w: objective sigmoid %q", ErrParse, v)
				}
				sigmoid = s
			}
		}
		return sigmoid, nil
	case "cross_entropy", "xentropy":
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: objective %q does not produce probabilities", ErrUnsupported, fields[0])
	}
}

func parseTree(p map[string]string, numFeatures int) (tree, error) {
	var t tree

	if p["is_linear"] == "1" {
		return t, fmt.Errorf("%w: linear trees", ErrUnsupported)
	}
	numLeaves, err := intParam(p, "num_leaves", 0)
	if err != nil {
		return t, err
	}
	if numLeaves < 1 {
		return t, fmt.Errorf("%w: num_leaves=%d", ErrParse, numLeaves)
	}
	numCat, err := intParam(p, "num_cat", 0)
	if err != nil {
		return t, err
	}

	if t.leafValue, err = floats(p, "leaf_value", numLeaves); err != nil {
		return t, err
	}
	if numLeaves == 1 {
		return t, nil
	}

	internal := numLeaves - 1
	if t.splitFeature, err = ints(p, "split_feature", internal); err != nil {
		return t, err
	}
	if t.threshold, err = floats(p, "threshold", internal); err != nil {
		return t, err
	}
	if t.leftChild, err = ints(p, "left_child", internal); err != nil {
		return t, err
	}
	if t.rightChild, err = ints(p, "right_child", internal); err != nil {
		return t, err
	}
	decisions, err := ints(p, "decision_type", internal)
	if err != nil {
		return t, err
	}
	t.decisionType = make([]uint8, internal)
	for i, d := range decisions {
		if d < 0 || d > 0xff {
			return t, fmt.Errorf("%w: decision_type %d", ErrParse, d)
		}
		t.decisionType[i] = uint8(d)
	}

	if numCat > 0 {
		if t.catBoundaries, err = ints(p, "cat_boundaries", numCat+1); err != nil {
			return t, err
		}
		words := t.catBoundaries[numCat]
		if t.catThreshold, err = words32(p, "cat_threshold", words); err != nil {
			return t, err
		}
		if t.catBoundaries[0] != 0 {
			return t, fmt.Errorf("%w: cat_boundaries must start at 0", ErrParse)
		}
		for i := 1; i <= numCat; i++ {
			if t.catBoundaries[i] < t.catBoundaries[i-1] || t.catBoundaries[i] > words {
				return t, fmt.Errorf("%w: cat_boundaries not ascending", ErrParse)
			}
		}
	}

	for node := 0; node < internal; node++ {
		if f := t.splitFeature[node]; f < 0 || f >= numFeatures {
			return t, fmt.Errorf("%w: node %d splits on feature %d of %d", ErrParse, node, f, numFeatures)
		}
		if t.decisionType[node]&categoricalMask != 0 {
			idx := int(t.threshold[node])
			if numCat == 0 || idx < 0 || idx >= numCat || float64(idx) != t.threshold[node] {
				return t, fmt.Errorf("%w: node %d categorical threshold %v", ErrParse, node, t.threshold[node])
			}
		}
		for _, child := range []int{t.leftChild[node], t.rightChild[node]} {
			// LightGBM numbers children after their parent.
			if child >= 0 && (child <= node || child >= internal) {
				return t, fmt.Errorf("%w: node %d has invalid child %d", ErrParse, node, child)
			}
			if child < 0 && ^child >= numLeaves {
				return t, fmt.Errorf("%w: node %d points at leaf %d of %d", ErrParse, node, ^child, numLeaves)
			}
		}
	}
	return t, nil
}

func has(p map[string]string, key string) bool {
	_, ok := p[key]
	return ok
}

func intParam(p map[string]string, key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrParse, key, truncate(v))
	}
	return n, nil
}

func ints(p map[string]string, key string, want int) ([]int, error) {
	fields, err := fieldsOf(p, key, want)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s[%d]=%q", ErrParse, key, i, f)
		}
		out[i] = n
	}
	return out, nil
}

func words32(p map[string]string, key string, want int) ([]uint32, error) {
	fields, err := fieldsOf(p, key, want)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, len(fields))
	for i, f := range fields {
		w, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %s[%d]=%q", ErrParse, key, i, f)
		}
		out[i] = uint32(w)
	}
	return out, nil
}

func floats(p map[string]string, key string, want int) ([]float64, error) {
	fields, err := fieldsOf(p, key, want)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s[%d]=%q", ErrParse, key, i, f)
		}
		out[i] = v
	}
	return out, nil
}

func fieldsOf(p map[string]string, key string, want int) ([]string, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrParse, key)
	}
	fields := strings.Fields(v)
	if len(fields) != want {
		return nil, fmt.Errorf("%w: %s has %d values, want %d", ErrParse, key, len(fields), want)
	}
	return fields, nil
}

func truncate(s string) string {
	const limit = 40
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

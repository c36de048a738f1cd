//go:build onnx
// +build onnx

package ner

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// ModelEngine implements Engine using an ONNX token-classification model
// (BERT-style BIO tagging) via yalue/onnxruntime_go.
type ModelEngine struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
	outputName string
	vocab      map[string]int64
	labels     []string
	maxLength  int
	threshold  float64
	logger     *zap.Logger
	ready      bool
	mu         sync.RWMutex

	clsID, sepID, unkID, padID int64
}

// defaultLabels is the BIO tag set used when no labels file is supplied.
var defaultLabels = []string{
	"O",
	"B-PERSON", "I-PERSON",
	"B-LOCATION", "I-LOCATION",
	"B-ORGANIZATION", "I-ORGANIZATION",
	"B-DATE_TIME", "I-DATE_TIME",
}

// newModelEngine initializes the ONNX Runtime backend. Requires build tag
// 'onnx'. Returns nil on any initialization failure so the factory can
// fall back to the heuristic engine.
func newModelEngine(logger *zap.Logger, config EngineConfig) Engine {
	// Allow user to provide shared library path via environment variable.
	if shlib := os.Getenv("ONNXRUNTIME_SHARED_LIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	} else if shlib := os.Getenv("ORT_SHLIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		logger.Error("ONNX Runtime environment init failed", zap.Error(err))
		return nil
	}

	inputsInfo, outputsInfo, err := ort.GetInputOutputInfo(config.ModelPath)
	if err != nil {
		logger.Error("Failed to inspect ONNX model IO", zap.Error(err), zap.String("model", config.ModelPath))
		return nil
	}

	// Prefer common transformer inputs order
	preferredInputs := []string{"input_ids", "attention_mask", "token_type_ids"}
	available := map[string]bool{}
	for _, ii := range inputsInfo {
		available[strings.ToLower(ii.Name)] = true
	}
	var inputNames []string
	for _, name := range preferredInputs {
		if available[name] {
			inputNames = append(inputNames, name)
		}
	}
	if len(inputNames) == 0 && len(inputsInfo) > 0 {
		sorted := make([]string, 0, len(inputsInfo))
		for _, ii := range inputsInfo {
			sorted = append(sorted, ii.Name)
		}
		sort.Strings(sorted)
		inputNames = sorted
	}

	if len(outputsInfo) == 0 {
		logger.Error("ONNX model reports no outputs", zap.String("model", config.ModelPath))
		return nil
	}
	outputName := outputsInfo[0].Name

	sess, err := ort.NewDynamicAdvancedSession(config.ModelPath, inputNames, []string{outputName}, nil)
	if err != nil {
		logger.Error("ONNX Runtime session creation failed", zap.Error(err), zap.String("model", config.ModelPath))
		return nil
	}

	vocab, err := loadVocab(config.VocabPath)
	if err != nil {
		logger.Error("Failed to load model vocabulary", zap.Error(err), zap.String("vocab", config.VocabPath))
		sess.Destroy()
		return nil
	}

	labels := defaultLabels
	if config.LabelsPath != "" {
		labels, err = loadLabels(config.LabelsPath)
		if err != nil {
			logger.Error("Failed to load model labels", zap.Error(err), zap.String("labels", config.LabelsPath))
			sess.Destroy()
			return nil
		}
	}

	e := &ModelEngine{
		session:    sess,
		inputNames: inputNames,
		outputName: outputName,
		vocab:      vocab,
		labels:     labels,
		maxLength:  config.MaxLength,
		threshold:  config.ScoreThreshold,
		logger:     logger,
		ready:      true,
	}
	e.clsID = vocabID(vocab, "[CLS]", 101)
	e.sepID = vocabID(vocab, "[SEP]", 102)
	e.unkID = vocabID(vocab, "[UNK]", 100)
	e.padID = vocabID(vocab, "[PAD]", 0)

	logger.Info("ONNX NER backend ready",
		zap.String("model", config.ModelPath),
		zap.Strings("inputs", inputNames),
		zap.String("output", outputName),
		zap.Int("labels", len(labels)))
	return e
}

func loadVocab(path string) (map[string]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vocab := make(map[string]int64)
	scanner := bufio.NewScanner(f)
	var id int64
	for scanner.Scan() {
		vocab[strings.TrimSpace(scanner.Text())] = id
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(vocab) == 0 {
		return nil, fmt.Errorf("vocabulary file %s is empty", path)
	}
	return vocab, nil
}

func loadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}

func vocabID(vocab map[string]int64, token string, fallback int64) int64 {
	if id, ok := vocab[token]; ok {
		return id
	}
	return fallback
}

// wordToken is one whitespace/punctuation-delimited word with its byte
// offsets in the original text.
type wordToken struct {
	text  string
	start int
	end   int
}

// tokenize splits text into words, tracking byte offsets so label spans
// can be mapped back to the input.
func tokenize(text string) []wordToken {
	var words []wordToken
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			if start >= 0 {
				words = append(words, wordToken{text: text[start:i], start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, wordToken{text: text[start:], start: start, end: len(text)})
	}
	return words
}

// IsReady reports whether the backend is initialized.
func (e *ModelEngine) IsReady() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ready && e.session != nil
}

// Close releases session and environment resources.
func (e *ModelEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	ort.DestroyEnvironment()
	e.ready = false
	return nil
}

// Recognize runs token classification over text and merges BIO tags into
// entity spans against the original byte offsets.
func (e *ModelEngine) Recognize(ctx context.Context, text string) ([]Span, error) {
	if !e.IsReady() {
		return nil, fmt.Errorf("onnx backend not ready")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	words := tokenize(text)
	if len(words) == 0 {
		return nil, nil
	}
	if len(words) > e.maxLength-2 {
		words = words[:e.maxLength-2]
	}
	seqLen := len(words) + 2

	inputIDs := make([]int64, 0, seqLen)
	inputIDs = append(inputIDs, e.clsID)
	for _, w := range words {
		id, ok := e.vocab[w.text]
		if !ok {
			id, ok = e.vocab[strings.ToLower(w.text)]
		}
		if !ok {
			id = e.unkID
		}
		inputIDs = append(inputIDs, id)
	}
	inputIDs = append(inputIDs, e.sepID)

	attention := make([]int64, seqLen)
	tokenTypes := make([]int64, seqLen)
	for i := range attention {
		attention[i] = 1
	}

	shape := ort.NewShape(1, int64(seqLen))
	idsTensor, err := ort.NewTensor[int64](shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor[int64](shape, attention)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor[int64](shape, tokenTypes)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	inputs := make([]ort.Value, 0, len(e.inputNames))
	for _, rawName := range e.inputNames {
		name := strings.ToLower(rawName)
		switch {
		case strings.Contains(name, "ids") && !strings.Contains(name, "type"):
			inputs = append(inputs, idsTensor)
		case strings.Contains(name, "attention") || strings.Contains(name, "mask"):
			inputs = append(inputs, maskTensor)
		default:
			inputs = append(inputs, typeTensor)
		}
	}

	outputs := make([]ort.Value, 1)
	if err := e.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("onnx run failed: %w", err)
	}
	if len(outputs) == 0 || outputs[0] == nil {
		return nil, fmt.Errorf("onnx returned no outputs")
	}
	defer func() {
		if outputs[0] != nil {
			_ = outputs[0].Destroy()
		}
	}()

	outTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type (want float32 tensor)")
	}
	data := outTensor.GetData()
	outShape := outTensor.GetShape()
	if len(outShape) != 3 {
		return nil, fmt.Errorf("unsupported output shape %v (want [batch, seq, labels])", outShape)
	}
	numLabels := int(outShape[2])
	if numLabels != len(e.labels) {
		return nil, fmt.Errorf("model emits %d labels, configuration declares %d", numLabels, len(e.labels))
	}
	if len(data) < seqLen*numLabels {
		return nil, fmt.Errorf("unexpected flat data length %d for shape %v", len(data), outShape)
	}

	return e.decode(words, data, numLabels), nil
}

// decode maps per-token logits to BIO labels and folds runs of matching
// tags into spans. Position 0 is [CLS]; word i sits at position i+1.
func (e *ModelEngine) decode(words []wordToken, logits []float32, numLabels int) []Span {
	var spans []Span
	var current *Span
	var scoreSum float64
	var scoreN int

	flush := func() {
		if current != nil {
			current.Score = scoreSum / float64(scoreN)
			spans = append(spans, *current)
			current = nil
		}
	}

	for i, w := range words {
		offset := (i + 1) * numLabels
		label, prob := argmaxSoftmax(logits[offset : offset+numLabels])
		tag := e.labels[label]
		if tag == "O" || prob < e.threshold {
			flush()
			continue
		}
		entityType := strings.TrimPrefix(strings.TrimPrefix(tag, "B-"), "I-")
		continuation := strings.HasPrefix(tag, "I-") && current != nil && current.EntityType == entityType
		if continuation {
			current.End = w.end
			scoreSum += prob
			scoreN++
			continue
		}
		flush()
		current = &Span{EntityType: entityType, Start: w.start, End: w.end}
		scoreSum, scoreN = prob, 1
	}
	flush()
	return spans
}

func argmaxSoftmax(logits []float32) (int, float64) {
	maxIdx := 0
	maxVal := logits[0]
	for i, v := range logits {
		if v > maxVal {
			maxIdx, maxVal = i, v
		}
	}
	var sum float64
	for _, v := range logits {
		sum += math.Exp(float64(v - maxVal))
	}
	return maxIdx, 1.0 / sum
}

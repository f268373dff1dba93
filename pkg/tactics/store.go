package tactics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

// TacticalRecord is one dataset row, bound to a (game, ply) pair. Created
// once during analysis and never mutated afterward. ScoreDiff is signed
// from the mover's perspective: negative means the played move lost value
// against the best available alternative.
type TacticalRecord struct {
	GameID         string `parquet:"name=game_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Ply            int32  `parquet:"name=ply, type=INT32"`
	Color          string `parquet:"name=color, type=BYTE_ARRAY, convertedtype=UTF8"`
	MoverElo       int32  `parquet:"name=mover_elo, type=INT32"`
	FEN            string `parquet:"name=fen, type=BYTE_ARRAY, convertedtype=UTF8"`
	SAN            string `parquet:"name=san, type=BYTE_ARRAY, convertedtype=UTF8"`
	UCI            string `parquet:"name=uci, type=BYTE_ARRAY, convertedtype=UTF8"`
	ScoreCp        int32  `parquet:"name=score_cp, type=INT32"`
	BestMoveUCI    string `parquet:"name=best_move_uci, type=BYTE_ARRAY, convertedtype=UTF8"`
	ScoreDiff      int32  `parquet:"name=score_diff, type=INT32"`
	DepthScoreDiff int32  `parquet:"name=depth_score_diff, type=INT32"`
	ErrorLabel     string `parquet:"name=error_label, type=BYTE_ARRAY, convertedtype=UTF8"`
	Pattern        string `parquet:"name=pattern, type=BYTE_ARRAY, convertedtype=UTF8"`
	Phase          string `parquet:"name=phase, type=BYTE_ARRAY, convertedtype=UTF8"`
	ForcedMove     bool   `parquet:"name=forced_move, type=BOOLEAN"`
	ThreatensMate  bool   `parquet:"name=threatens_mate, type=BOOLEAN"`
	Depth          int32  `parquet:"name=depth, type=INT32"`
	MultiPV        int32  `parquet:"name=multipv, type=INT32"`
}

// GameReport is the output of analyzing one game: ordered records plus the
// per-ply skip accounting.
type GameReport struct {
	GameID       string
	Records      []TacticalRecord
	PliesTotal   int
	PliesSkipped int
	PliesFailed  int
}

// ParquetSchema mirrors schema/parquet_schema.json, the contract between
// this writer and downstream dataset consumers.
type ParquetSchema struct {
	Name   string         `json:"name"`
	Fields []ParquetField `json:"fields"`
}

type ParquetField struct {
	Name     string      `json:"name"`
	Type     interface{} `json:"type"`
	Nullable bool        `json:"nullable"`
}

// DatasetWriter writes TacticalRecord rows to a parquet file.
type DatasetWriter struct {
	fileWriter    source.ParquetFile
	parquetWriter *writer.ParquetWriter
}

// NewDatasetWriter opens a parquet file for writing after validating the
// record struct against the JSON schema contract.
func NewDatasetWriter(path, schemaPath string, parallel int64) (*DatasetWriter, error) {
	schema, err := loadParquetSchema(schemaPath)
	if err != nil {
		return nil, err
	}
	if err := validateSchema(schema, TacticalRecord{}); err != nil {
		return nil, err
	}
	if parallel <= 0 {
		parallel = 1
	}

	fileWriter, err := local.NewLocalFileWriter(path)
	if err != nil {
		return nil, err
	}
	parquetWriter, err := writer.NewParquetWriter(fileWriter, new(TacticalRecord), parallel)
	if err != nil {
		fileWriter.Close()
		return nil, err
	}
	parquetWriter.CompressionType = parquet.CompressionCodec_SNAPPY
	return &DatasetWriter{fileWriter: fileWriter, parquetWriter: parquetWriter}, nil
}

// WriteRecord appends one row.
func (w *DatasetWriter) WriteRecord(record TacticalRecord) error {
	return w.parquetWriter.Write(record)
}

// WriteGame appends all records of a completed game, in ply order.
func (w *DatasetWriter) WriteGame(report *GameReport) error {
	for _, record := range report.Records {
		if err := w.WriteRecord(record); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes row groups and closes the file.
func (w *DatasetWriter) Close() error {
	if err := w.parquetWriter.WriteStop(); err != nil {
		w.fileWriter.Close()
		return err
	}
	return w.fileWriter.Close()
}

// ReadDataset loads all rows from a parquet file in batches.
func ReadDataset(path string, parallel int64) ([]TacticalRecord, error) {
	if parallel <= 0 {
		parallel = 1
	}
	fileReader, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, err
	}
	defer fileReader.Close()

	parquetReader, err := reader.NewParquetReader(fileReader, new(TacticalRecord), parallel)
	if err != nil {
		return nil, err
	}
	defer parquetReader.ReadStop()

	num := int(parquetReader.GetNumRows())
	records := make([]TacticalRecord, 0, num)
	batchSize := 1024
	for offset := 0; offset < num; offset += batchSize {
		remain := num - offset
		if remain < batchSize {
			batchSize = remain
		}
		batch := make([]TacticalRecord, batchSize)
		if err := parquetReader.Read(&batch); err != nil {
			return nil, err
		}
		records = append(records, batch...)
	}
	return records, nil
}

func loadParquetSchema(path string) (ParquetSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ParquetSchema{}, err
	}
	var schema ParquetSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return ParquetSchema{}, err
	}
	return schema, nil
}

func validateSchema(schema ParquetSchema, sample any) error {
	schemaFields := make(map[string]struct{}, len(schema.Fields))
	for _, field := range schema.Fields {
		schemaFields[field.Name] = struct{}{}
	}
	structFields := structParquetFieldNames(sample)
	missing := diffKeys(schemaFields, structFields)
	extra := diffKeys(structFields, schemaFields)
	if len(missing) > 0 || len(extra) > 0 {
		return fmt.Errorf("parquet schema mismatch: missing=%v extra=%v", missing, extra)
	}
	return nil
}

func structParquetFieldNames(sample any) map[string]struct{} {
	fields := map[string]struct{}{}
	v := reflect.TypeOf(sample)
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		name := parseParquetName(field.Tag.Get("parquet"))
		if name != "" {
			fields[name] = struct{}{}
		}
	}
	return fields
}

func parseParquetName(tag string) string {
	if tag == "" {
		return ""
	}
	parts := strings.Split(tag, ",")
	for _, part := range parts {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) == 2 && kv[0] == "name" {
			return kv[1]
		}
	}
	return ""
}

func diffKeys(a, b map[string]struct{}) []string {
	var diff []string
	for key := range a {
		if _, ok := b[key]; !ok {
			diff = append(diff, key)
		}
	}
	return diff
}

// Manifest records which games were fully analyzed, keyed by game id with
// the flushed record count. It is the only cross-run shared state: a game
// missing from the manifest is (re)analyzed from scratch, so a crash loses
// only in-flight games and re-running never appends to partial results.
type Manifest struct {
	Analyzed map[string]int32 `json:"analyzed"`
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{Analyzed: make(map[string]int32)}
}

// LoadManifest reads a manifest; a missing file yields an empty one.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewManifest(), nil
	}
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Analyzed == nil {
		m.Analyzed = make(map[string]int32)
	}
	return &m, nil
}

// IsAnalyzed reports whether a game id was already flushed.
func (m *Manifest) IsAnalyzed(id string) bool {
	_, ok := m.Analyzed[id]
	return ok
}

// MarkAnalyzed records a flushed game. Idempotent: marking the same id
// again just overwrites the count.
func (m *Manifest) MarkAnalyzed(id string, records int32) {
	m.Analyzed[id] = records
}

// Save writes the manifest atomically (temp file, then rename) so a crash
// mid-write can never corrupt the analyzed set.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// DefaultManifestPath derives the manifest location from the dataset path.
func DefaultManifestPath(outputPath string) string {
	return filepath.Join(filepath.Dir(outputPath), "analyzed.json")
}

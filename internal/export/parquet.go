package export

import (
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// ParquetSaver writes rows as a Parquet file.
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

func (ParquetSaver) Save(rows []Row, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return parquet.WriteFile(path, rows)
}

// ReadParquet loads rows written by ParquetSaver.
func ReadParquet(path string) ([]Row, error) {
	return parquet.ReadFile[Row](path)
}

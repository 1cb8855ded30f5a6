package tabular

import (
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat 不支持的文件格式
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrEmptyDataset 文件无表头或无数据行
	ErrEmptyDataset = errors.New("empty dataset")
)

// Dataset 解码后的表格数据。
// Headers 保留原始列名顺序，Rows 按列名取值，缺列补空串。
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// RowCount 数据行数
func (d *Dataset) RowCount() int {
	return len(d.Rows)
}

// Preview 返回前 n 行，供映射界面预览
func (d *Dataset) Preview(n int) []map[string]string {
	if n <= 0 || len(d.Rows) == 0 {
		return []map[string]string{}
	}
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	return d.Rows[:n]
}

// Decode 按文件扩展名选择解码器。
// CSV 走标准 csv 解析，xlsx/xls 交给 excelize 读取首个工作表。
func Decode(reader io.Reader, filename string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return decodeCSV(reader)
	case ".xlsx", ".xls":
		return decodeExcel(reader)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func decodeCSV(reader io.Reader) (*Dataset, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	var records [][]string
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return buildDataset(records)
}

func decodeExcel(reader io.Reader) (*Dataset, error) {
	book, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, ErrUnsupportedFormat
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyDataset
	}
	records, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return buildDataset(records)
}

// buildDataset 把原始记录归一化为 Dataset。
// 首个非空行作为表头，空白列名的列整列丢弃，全空行跳过。
func buildDataset(records [][]string) (*Dataset, error) {
	var (
		headers   []string
		headerIdx []int
	)
	rowStart := 0
	for i, record := range records {
		if rowEmpty(record) {
			continue
		}
		for j, col := range record {
			name := strings.TrimSpace(strings.TrimPrefix(col, "\uFEFF"))
			if name == "" {
				continue
			}
			headers = append(headers, name)
			headerIdx = append(headerIdx, j)
		}
		rowStart = i + 1
		break
	}
	if len(headers) == 0 {
		return nil, ErrEmptyDataset
	}

	dataset := &Dataset{Headers: headers}
	for _, record := range records[rowStart:] {
		if rowEmpty(record) {
			continue
		}
		row := make(map[string]string, len(headers))
		for k, header := range headers {
			idx := headerIdx[k]
			value := ""
			if idx < len(record) {
				value = strings.TrimSpace(record[idx])
			}
			row[header] = value
		}
		dataset.Rows = append(dataset.Rows, row)
	}
	if len(dataset.Rows) == 0 {
		return nil, ErrEmptyDataset
	}
	return dataset, nil
}

func rowEmpty(record []string) bool {
	for _, col := range record {
		if strings.TrimSpace(strings.TrimPrefix(col, "\uFEFF")) != "" {
			return false
		}
	}
	return true
}

package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>`)
	docxTextRun      = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	slideName        = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
	extraBlankLines  = regexp.MustCompile(`\n{3,}`)
)

// SupportedExtensions lists the file types ExtractText understands
var SupportedExtensions = []string{".pdf", ".docx", ".pptx", ".xlsx", ".xlsm", ".xltx", ".md", ".markdown", ".txt", ".csv"}

// ExtractFile reads a file from disk and extracts its text
func ExtractFile(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return ExtractText(filepath.Base(filePath), data)
}

// ExtractText converts raw file bytes into plain text, paragraphs separated by blank lines
func ExtractText(filename string, data []byte) (string, error) {
	var (
		text string
		err  error
	)
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		text, err = parsePDF(data)
	case ".docx":
		text, err = parseDOCX(data)
	case ".pptx":
		text, err = parsePPTX(data)
	case ".xlsx":
		text, err = parseXLSX(data)
	case ".xlsm", ".xltx":
		text, err = parseWorkbook(data)
	case ".md", ".markdown":
		text, err = parseMarkdown(data)
	case ".txt", ".csv":
		text = string(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", filename, err)
	}
	return cleanText(text), nil
}

func parsePDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var pages []string
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		pages = append(pages, pageText)
	}
	return strings.Join(pages, "\n\n"), nil
}

func parseDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer r.Close()

	return docxText(r.Editable().GetContent()), nil
}

// docxText pulls the text runs out of document.xml, one paragraph per w:p element
func docxText(xmlContent string) string {
	var paragraphs []string
	for _, p := range docxParagraphEnd.Split(xmlContent, -1) {
		var b strings.Builder
		for _, m := range docxTextRun.FindAllStringSubmatch(p, -1) {
			b.WriteString(m[1])
		}
		if s := strings.TrimSpace(html.UnescapeString(b.String())); s != "" {
			paragraphs = append(paragraphs, s)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

func parsePPTX(data []byte) (string, error) {
	f, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	type slide struct {
		num  int
		text string
	}
	var slides []slide
	for _, file := range f.File {
		m := slideName.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		if text := strings.TrimSpace(extractTextFromXML(string(content))); text != "" {
			slides = append(slides, slide{num: num, text: text})
		}
	}
	// zip order is not slide order
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	parts := make([]string, len(slides))
	for i, s := range slides {
		parts[i] = s.text
	}
	return strings.Join(parts, "\n\n"), nil
}

func parseXLSX(data []byte) (string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return "", err
	}

	var sheets []string
	for _, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			text.WriteString(strings.Join(cells, "\t") + "\n")
		}
		sheets = append(sheets, text.String())
	}
	return strings.Join(sheets, "\n\n"), nil
}

func parseWorkbook(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sheets []string
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			text.WriteString(strings.Join(row, "\t") + "\n")
		}
		sheets = append(sheets, text.String())
	}
	return strings.Join(sheets, "\n\n"), nil
}

func extractTextFromXML(xmlContent string) string {
	var text strings.Builder
	parts := strings.Split(xmlContent, "<a:t>")
	for i, part := range parts {
		if i == 0 {
			continue
		}
		endIdx := strings.Index(part, "</a:t>")
		if endIdx >= 0 {
			text.WriteString(html.UnescapeString(part[:endIdx]) + " ")
		}
	}
	return text.String()
}

// normalize line endings and collapse runs of blank lines
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = extraBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

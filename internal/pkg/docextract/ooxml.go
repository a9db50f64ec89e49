package docextract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"code.sajari.com/docconv/v2"
)

var (
	paragraphBreaks = []string{"p", "br", "cr"}
	// mc:Fallback repeats the mc:Choice content; the rest is layout data or deleted text.
	skippedElements = []string{"Fallback", "instrText", "delText", "script", "posOffset", "align", "pctWidth", "pctHeight"}

	runTab  = []byte("<w:tab/>")
	textTab = []byte("<w:t>\t</w:t>")
)

// ExtractWord returns the paragraphs of a .docx body, one per line.
func ExtractWord(data []byte) (string, error) {
	zr, err := openPackage(data)
	if err != nil {
		return "", err
	}
	part, err := readPart(zr, "word/document.xml")
	if err != nil {
		return "", err
	}
	return partText(bytes.ReplaceAll(part, runTab, textTab))
}

// ExtractPowerPoint returns the text of every slide in presentation order,
// slides separated by a blank line.
func ExtractPowerPoint(data []byte) (string, error) {
	zr, err := openPackage(data)
	if err != nil {
		return "", err
	}
	slides, err := slideOrder(zr)
	if err != nil {
		return "", err
	}
	if len(slides) == 0 {
		return "", fmt.Errorf("%w: presentation has no slides", ErrInvalidDocument)
	}

	texts := make([]string, 0, len(slides))
	for _, f := range slides {
		part, err := readZipFile(f)
		if err != nil {
			return "", err
		}
		text, err := partText(part)
		if err != nil {
			return "", err
		}
		if text != "" {
			texts = append(texts, text)
		}
	}
	return strings.Join(texts, "\n\n"), nil
}

func partText(part []byte) (string, error) {
	text, err := docconv.XMLToText(bytes.NewReader(part), paragraphBreaks, skippedElements, true)
	if err != nil {
		return "", fmt.Errorf("%w: decode xml: %v", ErrInvalidDocument, err)
	}
	return compactLines(text), nil
}

// compactLines trims every line and drops the blank ones markup whitespace leaves behind.
func compactLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

type presentationPart struct {
	SlideIDs []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsPart struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// slideOrder follows the sldIdLst of ppt/presentation.xml. Packages without
// that index fall back to the slide number in the part name.
func slideOrder(zr *zip.Reader) ([]*zip.File, error) {
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}
	presFile, hasPres := files["ppt/presentation.xml"]
	relsFile, hasRels := files["ppt/_rels/presentation.xml.rels"]
	if !hasPres || !hasRels {
		return slidesByPartName(zr), nil
	}

	var pres presentationPart
	if err := decodePart(presFile, &pres); err != nil {
		return nil, err
	}
	var rels relationshipsPart
	if err := decodePart(relsFile, &rels); err != nil {
		return nil, err
	}
	targets := make(map[string]string, len(rels.Relationships))
	for _, r := range rels.Relationships {
		targets[r.ID] = r.Target
	}

	slides := make([]*zip.File, 0, len(pres.SlideIDs))
	for _, id := range pres.SlideIDs {
		target, ok := targets[id.RelID]
		if !ok {
			continue
		}
		name := strings.TrimPrefix(target, "/")
		if !strings.HasPrefix(target, "/") {
			name = path.Join("ppt", target)
		}
		if f, ok := files[name]; ok {
			slides = append(slides, f)
		}
	}
	return slides, nil
}

func slidesByPartName(zr *zip.Reader) []*zip.File {
	type slidePart struct {
		index int
		file  *zip.File
	}
	var parts []slidePart
	for _, f := range zr.File {
		name := f.Name
		if !strings.HasPrefix(name, "ppt/slides/slide") || !strings.HasSuffix(name, ".xml") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "ppt/slides/slide"), ".xml"))
		if err != nil {
			continue
		}
		parts = append(parts, slidePart{index: n, file: f})
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].index < parts[j].index })

	slides := make([]*zip.File, 0, len(parts))
	for _, p := range parts {
		slides = append(slides, p.file)
	}
	return slides
}

func decodePart(f *zip.File, v any) error {
	part, err := readZipFile(f)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(part, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrInvalidDocument, f.Name, err)
	}
	return nil
}

func openPackage(data []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: not an office open xml package: %v", ErrInvalidDocument, err)
	}
	return zr, nil
}

func readPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return readZipFile(f)
		}
	}
	return nil, fmt.Errorf("%w: missing part %s", ErrInvalidDocument, name)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open part %s failed: %w", f.Name, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read part %s failed: %w", f.Name, err)
	}
	return b, nil
}

package reader

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
)

// NCX XML structures for parsing toc.ncx
type ncx struct {
	NavMap navMap `xml:"navMap"`
}

type navMap struct {
	NavPoints []navPoint `xml:"navPoint"`
}

type navPoint struct {
	ID        string     `xml:"id,attr"`
	PlayOrder int        `xml:"playOrder,attr"`
	Label     navLabel   `xml:"navLabel"`
	Content   navContent `xml:"content"`
	Children  []navPoint `xml:"navPoint"`
}

type navLabel struct {
	Text string `xml:"text"`
}

type navContent struct {
	Src string `xml:"src,attr"`
}

type tocTitle struct {
	text  string
	level int
}

// buildTOCHrefMap parses the NCX and returns titles keyed by href, by href
// without fragment and by base name. The first entry for a key wins.
func buildTOCHrefMap(filename string, book *epub.Rootfile) map[string]tocTitle {
	result := make(map[string]tocTitle)

	ncxData, err := findAndReadNCX(filename, book)
	if err != nil {
		return result
	}

	var toc ncx
	if err := xml.Unmarshal(ncxData, &toc); err != nil {
		return result
	}

	flattenNavPoints(toc.NavMap.NavPoints, 0, result)
	return result
}

func flattenNavPoints(points []navPoint, level int, result map[string]tocTitle) {
	add := func(key string, t tocTitle) {
		if _, exists := result[key]; !exists {
			result[key] = t
		}
	}
	for _, np := range points {
		href := np.Content.Src
		t := tocTitle{text: strings.TrimSpace(np.Label.Text), level: level}

		add(href, t)
		if idx := strings.Index(href, "#"); idx != -1 {
			add(href[:idx], t)
		}
		base := path.Base(href)
		if idx := strings.Index(base, "#"); idx != -1 {
			base = base[:idx]
		}
		add(base, t)

		flattenNavPoints(np.Children, level+1, result)
	}
}

func findAndReadNCX(filename string, book *epub.Rootfile) ([]byte, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var ncxPath string
	for _, item := range book.Manifest.Items {
		if item.MediaType == "application/x-dtbncx+xml" {
			ncxPath = item.HREF
			break
		}
	}
	if ncxPath == "" {
		for _, f := range zr.File {
			if strings.HasSuffix(strings.ToLower(f.Name), ".ncx") {
				ncxPath = f.Name
				break
			}
		}
	}

	if ncxPath == "" {
		return nil, fmt.Errorf("no NCX file found in EPUB")
	}

	for _, f := range zr.File {
		if f.Name == ncxPath || strings.HasSuffix(f.Name, "/"+ncxPath) || path.Base(f.Name) == path.Base(ncxPath) {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}

	return nil, fmt.Errorf("NCX file %s not found in archive", ncxPath)
}

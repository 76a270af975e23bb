// Package instrument parses the XML instrument manifest format and
// turns it into the catalog of PreloadedSamples the sampler engine
// plays, decoding each sample's preload prefix through a
// decoder.Opener along the way.
package instrument

import (
	"encoding/xml"
	"fmt"
	"io"
)

// Entry is one <sample> element of a manifest: a file locator plus the
// key/velocity zone it plays in.
type Entry struct {
	File    string `xml:"file,attr"`
	Root    int    `xml:"rootNote,attr"`
	LoNote  int    `xml:"loNote,attr"`
	HiNote  int    `xml:"hiNote,attr"`
	LoVel   int    `xml:"loVel,attr"`
	HiVel   int    `xml:"hiVel,attr"`
}

// Manifest is the decoded form of an instrument.sss file.
type Manifest struct {
	Name    string  `xml:"meta>name"`
	Author  string  `xml:"meta>author"`
	Entries []Entry `xml:"samples>sample"`
}

// xmlManifest mirrors the on-disk <SuperSimpleSampler> root element.
type xmlManifest struct {
	XMLName xml.Name `xml:"SuperSimpleSampler"`
	Meta    struct {
		Name   string `xml:"name"`
		Author string `xml:"author"`
	} `xml:"meta"`
	Samples struct {
		Sample []struct {
			File   string `xml:"file,attr"`
			Root   int    `xml:"rootNote,attr"`
			LoNote int    `xml:"loNote,attr"`
			HiNote int    `xml:"hiNote,attr"`
			LoVel  int    `xml:"loVel,attr"`
			HiVel  int    `xml:"hiVel,attr"`
		} `xml:"sample"`
	} `xml:"samples"`
}

// defaultEntry matches spec.md §6's stated defaults for an omitted
// attribute: rootNote=60, loNote=0, hiNote=127, loVel=1, hiVel=127.
var defaultEntry = Entry{Root: 60, LoNote: 0, HiNote: 127, LoVel: 1, HiVel: 127}

// ParseManifest decodes an instrument.sss document from r. A malformed
// document is rejected wholesale, per spec.md §7: no partial
// instruments.
func ParseManifest(r io.Reader) (*Manifest, error) {
	var raw xmlManifest
	if err := xml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("instrument: parse manifest: %w", err)
	}

	m := &Manifest{Name: raw.Meta.Name, Author: raw.Meta.Author}
	for _, s := range raw.Samples.Sample {
		if s.File == "" {
			return nil, fmt.Errorf("instrument: parse manifest: sample element missing file attribute")
		}
		// encoding/xml cannot distinguish an omitted attribute from an
		// explicit 0, so a 0 (or absent) value falls back to spec.md
		// §6's default for every field whose default is non-zero.
		e := Entry{File: s.File, Root: s.Root, LoNote: s.LoNote, HiNote: s.HiNote, LoVel: s.LoVel, HiVel: s.HiVel}
		if e.Root == 0 {
			e.Root = defaultEntry.Root
		}
		if e.HiNote == 0 {
			e.HiNote = defaultEntry.HiNote
		}
		if e.LoVel == 0 {
			e.LoVel = defaultEntry.LoVel
		}
		if e.HiVel == 0 {
			e.HiVel = defaultEntry.HiVel
		}
		if e.LoNote > e.HiNote || e.LoVel > e.HiVel {
			return nil, fmt.Errorf("instrument: parse manifest: sample %q has an empty zone", e.File)
		}
		m.Entries = append(m.Entries, e)
	}
	return m, nil
}

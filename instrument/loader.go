package instrument

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	goclone "github.com/huandu/go-clone/generic"

	"github.com/klangwerk/gosampler"
	"github.com/klangwerk/gosampler/decoder"
)

// ManifestFileName is the fixed file name an instrument folder must
// contain, per spec.md §6.
const ManifestFileName = "instrument.sss"

// Loader loads individual instrument folders into
// gosampler.PreloadedSample catalogs. Scanning a library directory is
// done by the package-level ScanInstruments.
type Loader struct {
	Opener decoder.Opener
	Logger *slog.Logger
}

// NewLoader returns a Loader that opens sample files through opener.
func NewLoader(opener decoder.Opener) *Loader {
	return &Loader{Opener: opener, Logger: slog.Default()}
}

// Info describes one instrument folder found during a library scan.
type Info struct {
	Name           string
	Folder         string
	DefinitionFile string
}

// ScanInstruments walks libraryDir for subdirectories containing
// instrument.sss and returns one Info per instrument found. Folders
// without a manifest are skipped, not treated as errors.
func ScanInstruments(libraryDir string) ([]Info, error) {
	entries, err := os.ReadDir(libraryDir)
	if err != nil {
		return nil, fmt.Errorf("instrument: scan %s: %w", libraryDir, err)
	}

	var found []Info
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		folder := filepath.Join(libraryDir, entry.Name())
		def := filepath.Join(folder, ManifestFileName)
		if _, err := os.Stat(def); err != nil {
			continue
		}
		found = append(found, Info{Name: entry.Name(), Folder: folder, DefinitionFile: def})
	}
	return found, nil
}

// LoadFromFolder loads the instrument.sss manifest in folder and
// builds a PreloadedSample for each entry, opening and preload-reading
// every sample file through the Loader's decoder.Opener. The load is
// all-or-nothing: a malformed manifest or an unreadable sample file
// aborts the load and returns an error, leaving any previously loaded
// instrument untouched by the caller (per spec.md §7).
func (l *Loader) LoadFromFolder(folder string) ([]*gosampler.PreloadedSample, error) {
	defPath := filepath.Join(folder, ManifestFileName)
	f, err := os.Open(defPath)
	if err != nil {
		return nil, fmt.Errorf("instrument: load %s: %w", folder, err)
	}
	defer f.Close()

	manifest, err := ParseManifest(f)
	if err != nil {
		return nil, fmt.Errorf("instrument: load %s: %w", folder, err)
	}

	// The samples are built from a deep clone of the parsed manifest.
	// Each PreloadedSample copies its entry's fields by value and keeps
	// no reference to either the clone or the parsed manifest.
	cloned := goclone.Clone(manifest)

	samples := make([]*gosampler.PreloadedSample, 0, len(cloned.Entries))
	for _, entry := range cloned.Entries {
		sample, err := l.loadEntry(folder, entry)
		if err != nil {
			return nil, fmt.Errorf("instrument: load %s: %w", folder, err)
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

func (l *Loader) loadEntry(folder string, entry Entry) (*gosampler.PreloadedSample, error) {
	path := entry.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(folder, path)
	}

	dec, err := l.Opener.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer dec.Close()

	channels := dec.Channels()
	preloadFrames := gosampler.PreloadFrames(channels)
	totalFrames := dec.LengthFrames()
	if int64(preloadFrames) > totalFrames {
		preloadFrames = int(totalFrames)
	}

	preload := make([][]float32, channels)
	for ch := range preload {
		preload[ch] = make([]float32, preloadFrames)
	}
	if _, err := dec.Read(preload, 0, preloadFrames, 0); err != nil {
		return nil, fmt.Errorf("preload %s: %w", path, err)
	}

	return &gosampler.PreloadedSample{
		FilePath:         path,
		TotalFrames:      totalFrames,
		Channels:         channels,
		SourceSampleRate: dec.SampleRate(),
		RootNote:         entry.Root,
		LoNote:           entry.LoNote,
		HiNote:           entry.HiNote,
		LoVel:            entry.LoVel,
		HiVel:            entry.HiVel,
		Name:             filepath.Base(path),
		Preload:          preload,
	}, nil
}

package instrument

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klangwerk/gosampler/decoder/dfdtest"
)

func writeManifest(t *testing.T, dir, doc string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestScanInstrumentsSkipsFoldersWithoutManifest(t *testing.T) {
	root := t.TempDir()

	withManifest := filepath.Join(root, "piano")
	if err := os.Mkdir(withManifest, 0o755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, withManifest, `<SuperSimpleSampler><meta><name>Piano</name></meta><samples><sample file="a.wav"/></samples></SuperSimpleSampler>`)

	withoutManifest := filepath.Join(root, "empty")
	if err := os.Mkdir(withoutManifest, 0o755); err != nil {
		t.Fatal(err)
	}

	found, err := ScanInstruments(root)
	if err != nil {
		t.Fatalf("ScanInstruments: %v", err)
	}
	if len(found) != 1 || found[0].Name != "piano" {
		t.Errorf("ScanInstruments found %+v, want exactly the piano folder", found)
	}
}

func TestLoadFromFolderBuildsPreloadedSamples(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `<SuperSimpleSampler>
		<meta><name>Kit</name></meta>
		<samples>
			<sample file="kick.wav" loNote="0" hiNote="59"/>
			<sample file="snare.wav" loNote="60" hiNote="127"/>
		</samples>
	</SuperSimpleSampler>`)

	lib := dfdtest.NewLibrary()
	lib.Put(filepath.Join(dir, "kick.wav"), &dfdtest.File{
		Channels: 1, SampleRate: 44100, Frames: [][]float32{{0.1, 0.2, 0.3}},
	})
	lib.Put(filepath.Join(dir, "snare.wav"), &dfdtest.File{
		Channels: 2, SampleRate: 44100, Frames: [][]float32{{0.4, 0.5}, {0.6, 0.7}},
	})

	loader := NewLoader(lib)
	samples, err := loader.LoadFromFolder(dir)
	if err != nil {
		t.Fatalf("LoadFromFolder: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("loaded %d samples, want 2", len(samples))
	}

	kick := samples[0]
	if kick.Channels != 1 || kick.TotalFrames != 3 {
		t.Errorf("kick = %+v, want Channels=1 TotalFrames=3", kick)
	}
	if kick.HiNote != 59 {
		t.Errorf("kick.HiNote = %d, want 59", kick.HiNote)
	}

	snare := samples[1]
	if snare.Channels != 2 || snare.TotalFrames != 2 {
		t.Errorf("snare = %+v, want Channels=2 TotalFrames=2", snare)
	}
	if snare.Preload[0][0] != 0.4 || snare.Preload[1][0] != 0.6 {
		t.Errorf("snare preload not copied correctly: %+v", snare.Preload)
	}
}

func TestLoadFromFolderRejectsMissingManifest(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(dfdtest.NewLibrary())
	if _, err := loader.LoadFromFolder(dir); err == nil {
		t.Fatal("a folder with no instrument.sss should fail to load")
	}
}

func TestLoadFromFolderRejectsUnreadableSample(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `<SuperSimpleSampler><meta><name>Bad</name></meta><samples><sample file="missing.wav"/></samples></SuperSimpleSampler>`)

	loader := NewLoader(dfdtest.NewLibrary())
	if _, err := loader.LoadFromFolder(dir); err == nil {
		t.Fatal("a manifest referencing a file the opener cannot open should fail the whole load")
	}
}

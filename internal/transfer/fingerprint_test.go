package transfer

import "testing"

func TestDownloadFingerprintStableAndDistinct(t *testing.T) {
	a := DownloadDescriptor{SourceURL: "http://x/y.bin", DestinationDir: "/tmp", TimeoutSeconds: 30}
	b := DownloadDescriptor{SourceURL: "http://x/y.bin", DestinationDir: "/tmp", TimeoutSeconds: 30}
	c := DownloadDescriptor{SourceURL: "http://x/z.bin", DestinationDir: "/tmp", TimeoutSeconds: 30}

	if downloadFingerprint(a) != downloadFingerprint(b) {
		t.Fatal("identical descriptors must fingerprint the same")
	}
	if downloadFingerprint(a) == downloadFingerprint(c) {
		t.Fatal("descriptors with different sources must fingerprint differently")
	}
}

func TestDownloadFingerprintIgnoresSourceWhitespace(t *testing.T) {
	a := DownloadDescriptor{SourceURL: "http://x/y.bin"}
	b := DownloadDescriptor{SourceURL: "  http://x/y.bin  "}
	if downloadFingerprint(a) != downloadFingerprint(b) {
		t.Fatal("surrounding whitespace in the source URL must not change identity")
	}
}

func TestDownloadFingerprintHeaderOrderInvariant(t *testing.T) {
	a := DownloadDescriptor{SourceURL: "http://x/y.bin", Headers: Headers{"A": {"1"}, "B": {"2"}}}
	b := DownloadDescriptor{SourceURL: "http://x/y.bin", Headers: Headers{"b": {"2"}, "a": {"1"}}}
	if downloadFingerprint(a) != downloadFingerprint(b) {
		t.Fatal("header map iteration order must not affect identity")
	}
}

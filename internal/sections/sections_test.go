package sections

import (
	"reflect"
	"strings"
	"testing"
)

const fullAnalysis = `Aqui está a análise do vídeo.

**1. Resumo Geral**
Um tutorial curto de culinária.

**2. Análise Visual**
Cozinha iluminada, close-ups das mãos.

**3. Análise de Áudio**
Narração calma com música ao fundo.

**4. Temas e Mensagens**
Simplicidade e comida caseira.

**5. Timestamps Importantes**
00:05 - ingredientes
00:40 - prato pronto

**6. Insights e Análise**
Bom potencial de engajamento.`

func TestSegmentScenario(t *testing.T) {
	got := Segment("**1. Resumo Geral** Hello world **2. Análise Visual** Some visual text")
	want := Sections{Summary: "Hello world", Visual: "Some visual text"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Segment() = %#v, want %#v", got, want)
	}
	for _, k := range []Key{Audio, Themes, Timestamps, Insights} {
		if _, ok := got.Get(k); ok {
			t.Fatalf("expected %s absent", k)
		}
	}
}

func TestSegmentAllSections(t *testing.T) {
	got := Segment(fullAnalysis)
	if len(got) != len(Keys) {
		t.Fatalf("expected %d sections, got %d: %#v", len(Keys), len(got), got)
	}
	if got[Timestamps] != "00:05 - ingredientes\n00:40 - prato pronto" {
		t.Fatalf("unexpected timestamps body %q", got[Timestamps])
	}
	if got[Insights] != "Bom potencial de engajamento." {
		t.Fatalf("unexpected insights body %q", got[Insights])
	}
}

func TestSegmentIsCaseSensitive(t *testing.T) {
	got := Segment("**1. resumo geral** lower case heading")
	if len(got) != 0 {
		t.Fatalf("expected no sections, got %#v", got)
	}
}

func TestSegmentDropsWhitespaceBodies(t *testing.T) {
	got := Segment("**1. Resumo Geral**   \n\t **2. Análise Visual** visible")
	if _, ok := got[Summary]; ok {
		t.Fatalf("whitespace-only summary must be absent, got %#v", got)
	}
	if got[Visual] != "visible" {
		t.Fatalf("unexpected visual %q", got[Visual])
	}
}

func TestSegmentStopsAtAnyNumberedHeading(t *testing.T) {
	got := Segment("**2. Análise Visual** first **9. Extra** ignored")
	if got[Visual] != "first" {
		t.Fatalf("unexpected visual %q", got[Visual])
	}
}

func TestSegmentTotality(t *testing.T) {
	inputs := []string{
		"",
		"no headings at all",
		"**",
		"**1.",
		"**1. Resumo Geral**",
		strings.Repeat("**1. Resumo Geral** x ", 50),
		fullAnalysis,
		"**6. Insights e Análise** late **1. Resumo Geral** early",
	}
	for _, in := range inputs {
		for name, fn := range map[string]func(string) Sections{"strict": Segment, "tolerant": SegmentTolerant} {
			got := fn(in)
			for k, v := range got {
				if strings.TrimSpace(v) == "" || v != strings.TrimSpace(v) {
					t.Fatalf("%s(%q): key %s has untrimmed or empty value %q", name, in, k, v)
				}
			}
		}
	}
}

func TestSegmentIsIdempotent(t *testing.T) {
	first := Segment(fullAnalysis)
	second := Segment(fullAnalysis)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("segmentation not deterministic")
	}
	if !reflect.DeepEqual(SegmentTolerant(fullAnalysis), SegmentTolerant(fullAnalysis)) {
		t.Fatalf("tolerant segmentation not deterministic")
	}
}

func TestSegmentTolerantAcceptsLooseHeadings(t *testing.T) {
	raw := `## Resumo geral
A short overview.

**3) ANALISE DE AUDIO:**
Voice over.

### Visual analysis
Bright colours with **bold** emphasis inside.

**Key Moments**
00:10 intro`

	got := SegmentTolerant(raw)
	want := Sections{
		Summary:    "A short overview.",
		Audio:      "Voice over.",
		Visual:     "Bright colours with **bold** emphasis inside.",
		Timestamps: "00:10 intro",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SegmentTolerant() = %#v, want %#v", got, want)
	}
}

func TestSegmentTolerantMatchesStrictOnCanonicalText(t *testing.T) {
	if got, want := SegmentTolerant(fullAnalysis), Segment(fullAnalysis); !reflect.DeepEqual(got, want) {
		t.Fatalf("tolerant = %#v, strict = %#v", got, want)
	}
}

func TestSegmentTolerantOutOfOrderHeadings(t *testing.T) {
	got := SegmentTolerant("**6. Insights e Análise** late **1. Resumo Geral** early")
	if got[Insights] != "late" || got[Summary] != "early" {
		t.Fatalf("unexpected sections %#v", got)
	}
}

func TestTabsFollowHeadingOrder(t *testing.T) {
	s := Sections{Insights: "i", Summary: "s", Audio: "a"}
	tabs := s.Tabs()
	if len(tabs) != 3 || tabs[0].Key != Summary || tabs[1].Key != Audio || tabs[2].Key != Insights {
		t.Fatalf("unexpected tab order %+v", tabs)
	}
	if tabs[1].Title != "Análise de Áudio" {
		t.Fatalf("unexpected title %q", tabs[1].Title)
	}
}

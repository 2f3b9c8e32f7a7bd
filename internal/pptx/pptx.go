// Package pptx writes minimal PowerPoint packages where every slide shows one
// full-bleed picture.
package pptx

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"strings"
)

// EMUPerInch is the number of English Metric Units in an inch.
const EMUPerInch = 914400

// PowerPoint refuses slide dimensions outside this range.
const (
	minSlideEMU = 914400
	maxSlideEMU = 51206400
)

var ErrNoSlides = errors.New("presentation has no slides")

// Writer streams a presentation into a zip archive. Slides and media are
// written as they are added. Close writes the parts that list them.
type Writer struct {
	zw     *zip.Writer
	cx, cy int64
	slides int
	closed bool
}

// NewWriter starts a presentation whose slides measure cx by cy EMU.
func NewWriter(w io.Writer, cx, cy int64) *Writer {
	return &Writer{
		zw: zip.NewWriter(w),
		cx: clampEMU(cx),
		cy: clampEMU(cy),
	}
}

// SlideSize converts a rendered page size in pixels at dpi into EMU.
func SlideSize(widthPx, heightPx int, dpi float64) (int64, int64) {
	return int64(float64(widthPx) * EMUPerInch / dpi), int64(float64(heightPx) * EMUPerInch / dpi)
}

func clampEMU(v int64) int64 {
	if v < minSlideEMU {
		return minSlideEMU
	}
	if v > maxSlideEMU {
		return maxSlideEMU
	}
	return v
}

// Slides reports how many slides have been added.
func (w *Writer) Slides() int { return w.slides }

// AddSlide appends a slide filled by the given PNG image.
func (w *Writer) AddSlide(png []byte) error {
	if w.closed {
		return errors.New("pptx writer is closed")
	}
	n := w.slides + 1

	if err := w.writeFile(fmt.Sprintf("ppt/media/image%d.png", n), png); err != nil {
		return err
	}
	if err := w.writeString(fmt.Sprintf("ppt/slides/slide%d.xml", n), slideXML(n, w.cx, w.cy)); err != nil {
		return err
	}
	if err := w.writeString(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", n), slideRelsXML(n)); err != nil {
		return err
	}

	w.slides = n
	return nil
}

// Close writes the package parts and finishes the archive. It fails when no
// slide was added.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.slides == 0 {
		return ErrNoSlides
	}

	parts := []struct {
		name, body string
	}{
		{"[Content_Types].xml", contentTypesXML(w.slides)},
		{"_rels/.rels", rootRelsXML},
		{"docProps/app.xml", appXML(w.slides)},
		{"docProps/core.xml", coreXML},
		{"ppt/presentation.xml", presentationXML(w.slides, w.cx, w.cy)},
		{"ppt/_rels/presentation.xml.rels", presentationRelsXML(w.slides)},
		{"ppt/slideMasters/slideMaster1.xml", slideMasterXML},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", slideMasterRelsXML},
		{"ppt/slideLayouts/slideLayout1.xml", slideLayoutXML},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", slideLayoutRelsXML},
		{"ppt/theme/theme1.xml", themeXML},
	}
	for _, p := range parts {
		if err := w.writeString(p.name, p.body); err != nil {
			return err
		}
	}
	return w.zw.Close()
}

func (w *Writer) writeString(name, body string) error {
	return w.writeFile(name, []byte(body))
}

func (w *Writer) writeFile(name string, data []byte) error {
	f, err := w.zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const (
	nsP   = `http://schemas.openxmlformats.org/presentationml/2006/main`
	nsA   = `http://schemas.openxmlformats.org/drawingml/2006/main`
	nsR   = `http://schemas.openxmlformats.org/officeDocument/2006/relationships`
	nsRel = `http://schemas.openxmlformats.org/package/2006/relationships`

	relSlide       = `http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide`
	relSlideMaster = `http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster`
	relSlideLayout = `http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout`
	relTheme       = `http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme`
	relImage       = `http://schemas.openxmlformats.org/officeDocument/2006/relationships/image`
)

func contentTypesXML(slides int) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	b.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	b.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	b.WriteString(`<Default Extension="png" ContentType="image/png"/>`)
	b.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`)
	b.WriteString(`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`)
	b.WriteString(`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>`)
	b.WriteString(`<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>`)
	for i := 1; i <= slides; i++ {
		fmt.Fprintf(&b, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i)
	}
	b.WriteString(`</Types>`)
	return b.String()
}

const rootRelsXML = xmlHeader +
	`<Relationships xmlns="` + nsRel + `">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="ppt/presentation.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>` +
	`<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties" Target="docProps/app.xml"/>` +
	`</Relationships>`

func appXML(slides int) string {
	return xmlHeader + fmt.Sprintf(
		`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">`+
			`<Application>pdf-converter</Application><Slides>%d</Slides></Properties>`, slides)
}

const coreXML = xmlHeader +
	`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" ` +
	`xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>Converted PDF</dc:title></cp:coreProperties>`

// Presentation relationships: rId1 is the master, slides follow from rId2.
func presentationXML(slides int, cx, cy int64) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	fmt.Fprintf(&b, `<p:presentation xmlns:a="%s" xmlns:r="%s" xmlns:p="%s" saveSubsetFonts="1">`, nsA, nsR, nsP)
	b.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	b.WriteString(`<p:sldIdLst>`)
	for i := 1; i <= slides; i++ {
		fmt.Fprintf(&b, `<p:sldId id="%d" r:id="rId%d"/>`, 255+i, i+1)
	}
	b.WriteString(`</p:sldIdLst>`)
	fmt.Fprintf(&b, `<p:sldSz cx="%d" cy="%d"/>`, cx, cy)
	fmt.Fprintf(&b, `<p:notesSz cx="%d" cy="%d"/>`, 6858000, 9144000)
	b.WriteString(`</p:presentation>`)
	return b.String()
}

func presentationRelsXML(slides int) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	fmt.Fprintf(&b, `<Relationships xmlns="%s">`, nsRel)
	fmt.Fprintf(&b, `<Relationship Id="rId1" Type="%s" Target="slideMasters/slideMaster1.xml"/>`, relSlideMaster)
	for i := 1; i <= slides; i++ {
		fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="%s" Target="slides/slide%d.xml"/>`, i+1, relSlide, i)
	}
	fmt.Fprintf(&b, `<Relationship Id="rId%d" Type="%s" Target="theme/theme1.xml"/>`, slides+2, relTheme)
	b.WriteString(`</Relationships>`)
	return b.String()
}

func slideXML(n int, cx, cy int64) string {
	return xmlHeader + fmt.Sprintf(
		`<p:sld xmlns:a="%s" xmlns:r="%s" xmlns:p="%s"><p:cSld><p:spTree>`+
			`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>`+
			`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`+
			`<p:pic><p:nvPicPr><p:cNvPr id="2" name="Page %d"/><p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr>`+
			`<p:blipFill><a:blip r:embed="rId2"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`+
			`<p:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>`+
			`</p:pic></p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`,
		nsA, nsR, nsP, n, cx, cy)
}

func slideRelsXML(n int) string {
	return xmlHeader + fmt.Sprintf(
		`<Relationships xmlns="%s">`+
			`<Relationship Id="rId1" Type="%s" Target="../slideLayouts/slideLayout1.xml"/>`+
			`<Relationship Id="rId2" Type="%s" Target="../media/image%d.png"/>`+
			`</Relationships>`,
		nsRel, relSlideLayout, relImage, n)
}

const emptyTree = `<p:cSld><p:spTree>` +
	`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>` +
	`</p:spTree></p:cSld>`

const slideMasterXML = xmlHeader +
	`<p:sldMaster xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `">` +
	emptyTree +
	`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" ` +
	`accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>` +
	`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>` +
	`</p:sldMaster>`

const slideMasterRelsXML = xmlHeader +
	`<Relationships xmlns="` + nsRel + `">` +
	`<Relationship Id="rId1" Type="` + relSlideLayout + `" Target="../slideLayouts/slideLayout1.xml"/>` +
	`<Relationship Id="rId2" Type="` + relTheme + `" Target="../theme/theme1.xml"/>` +
	`</Relationships>`

const slideLayoutXML = xmlHeader +
	`<p:sldLayout xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `" type="blank" preserve="1">` +
	emptyTree +
	`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>`

const slideLayoutRelsXML = xmlHeader +
	`<Relationships xmlns="` + nsRel + `">` +
	`<Relationship Id="rId1" Type="` + relSlideMaster + `" Target="../slideMasters/slideMaster1.xml"/>` +
	`</Relationships>`

func solid(hex string) string {
	return `<a:solidFill><a:srgbClr val="` + hex + `"/></a:solidFill>`
}

var themeXML = xmlHeader +
	`<a:theme xmlns:a="` + nsA + `" name="Office Theme"><a:themeElements>` +
	`<a:clrScheme name="Office">` +
	`<a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1>` +
	`<a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>` +
	`<a:dk2><a:srgbClr val="44546A"/></a:dk2><a:lt2><a:srgbClr val="E7E6E6"/></a:lt2>` +
	`<a:accent1><a:srgbClr val="4472C4"/></a:accent1><a:accent2><a:srgbClr val="ED7D31"/></a:accent2>` +
	`<a:accent3><a:srgbClr val="A5A5A5"/></a:accent3><a:accent4><a:srgbClr val="FFC000"/></a:accent4>` +
	`<a:accent5><a:srgbClr val="5B9BD5"/></a:accent5><a:accent6><a:srgbClr val="70AD47"/></a:accent6>` +
	`<a:hlink><a:srgbClr val="0563C1"/></a:hlink><a:folHlink><a:srgbClr val="954F72"/></a:folHlink>` +
	`</a:clrScheme>` +
	`<a:fontScheme name="Office">` +
	`<a:majorFont><a:latin typeface="Calibri Light"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>` +
	`<a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>` +
	`</a:fontScheme>` +
	`<a:fmtScheme name="Office">` +
	`<a:fillStyleLst>` + solid("FFFFFF") + solid("E7E6E6") + solid("A5A5A5") + `</a:fillStyleLst>` +
	`<a:lnStyleLst>` +
	`<a:ln w="6350">` + solid("000000") + `</a:ln>` +
	`<a:ln w="12700">` + solid("000000") + `</a:ln>` +
	`<a:ln w="19050">` + solid("000000") + `</a:ln>` +
	`</a:lnStyleLst>` +
	`<a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst>` +
	`<a:bgFillStyleLst>` + solid("FFFFFF") + solid("F2F2F2") + solid("D9D9D9") + `</a:bgFillStyleLst>` +
	`</a:fmtScheme>` +
	`</a:themeElements></a:theme>`

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package schema

import "sync"

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the built-in registry of panelization sections.
func Default() *Registry {
	defaultOnce.Do(func() { defaultReg = NewRegistry(builtinSections()...) })
	return defaultReg
}

var yesNo = []string{"False", "True"}

func builtinSections() []Section {
	return []Section{
		{Title: "Input", Options: []Option{
			{Name: InputOption, Kind: KindInputPath, Description: "Input file", NameFilter: "*.kicad_pcb"},
		}},
		{Title: "Output", Options: []Option{
			{Name: OutputOption, Kind: KindOutputPath, Description: "Output file", NameFilter: "*.kicad_pcb"},
		}},
		{Title: "Layout", Options: []Option{
			choice("type", "Layout type", []string{"grid", "plugin"}, nil),
			text("rows", "Specify the number of rows", nil),
			text("cols", "Specify the number of columns", nil),
			text("hspace", "Horizontal space between boards", nil),
			text("vspace", "Vertical space between boards", nil),
			text("space", "Space between boards (overrides hspace and vspace)", nil),
			text("hbackbone", "Width of the horizontal backbone (0 = no backbone)", nil),
			text("vbackbone", "Width of the vertical backbone (0 = no backbone)", nil),
			choice("alternation", "Board rotation pattern", []string{"none", "rows", "cols", "rowsCols"}, nil),
			text("rotation", "Rotate the boards before placing them in the panel", nil),
			text("renamenet", "Net renaming pattern", nil),
			text("renameref", "Reference renaming pattern", nil),
			choice("baketext", "Substitute variables in text elements", yesNo, nil),
			text("code", "Plugin specification (file.py.ClassName or package.ClassName)", typeIs("plugin")),
			text("arg", "Argument passed to the plugin", typeIs("plugin")),
		}},
		{Title: "Source", Options: []Option{
			choice("type", "How the source area is selected", []string{"auto", "rectangle", "annotation"}, nil),
			text("tolerance", "Extra space around the source area", typeIs("auto", "annotation")),
			text("tlx", "Top left X coordinate of the source area", typeIs("rectangle")),
			text("tly", "Top left Y coordinate of the source area", typeIs("rectangle")),
			text("brx", "Bottom right X coordinate of the source area", typeIs("rectangle")),
			text("bry", "Bottom right Y coordinate of the source area", typeIs("rectangle")),
			text("ref", "Reference of the kikit:Board annotation", typeIs("annotation")),
			choice("stack", "Board stackup", []string{"inherit", "2layer", "4layer", "6layer"}, nil),
		}},
		{Title: "Tabs", Options: []Option{
			choice("type", "Tab type", []string{"none", "fixed", "spacing", "full", "annotation", "plugin"}, nil),
			text("vwidth", "Width of vertical tabs", typeIs("fixed", "spacing")),
			text("hwidth", "Width of horizontal tabs", typeIs("fixed", "spacing")),
			text("width", "Width of tabs (overrides hwidth and vwidth)", typeIs("fixed", "spacing")),
			text("mindistance", "Minimal spacing between tabs", typeIs("fixed")),
			text("spacing", "The maximum spacing of the tabs", typeIs("spacing")),
			text("vcount", "Number of tabs in the vertical direction", typeIs("fixed")),
			text("hcount", "Number of tabs in the horizontal direction", typeIs("fixed")),
			choice("cutout", "Cutout the full tabs", yesNo, typeIs("full")),
			choice("patchcorners", "Patch the corners of full tabs", yesNo, typeIs("full")),
			text("tabfootprints", "Footprints marking tabs", typeIs("annotation")),
			text("code", "Plugin specification", typeIs("plugin")),
			text("arg", "Argument passed to the plugin", typeIs("plugin")),
		}},
		{Title: "Cuts", Options: []Option{
			choice("type", "Cut type", []string{"none", "mousebites", "vcuts", "layer", "plugin"}, nil),
			text("drill", "Drill size of the mouse bites", typeIs("mousebites")),
			text("spacing", "Spacing of the mouse bites", typeIs("mousebites")),
			text("offset", "Offset of the cut from the board edge", typeIs("mousebites", "vcuts")),
			text("prolong", "Distance for tangential prolongation of the cuts", typeIs("mousebites", "layer")),
			text("clearance", "Extra copper clearance around V-cuts", typeIs("vcuts")),
			choice("cutcurves", "Approximate curves with V-cuts", yesNo, typeIs("vcuts")),
			text("layer", "Layer for the cuts", typeIs("vcuts", "layer")),
			text("linewidth", "Width of the cut line", typeIs("vcuts", "layer")),
			text("endprolongation", "Prolongation of V-cut lines beyond the panel", typeIs("vcuts")),
			text("code", "Plugin specification", typeIs("plugin")),
			text("arg", "Argument passed to the plugin", typeIs("plugin")),
		}},
		{Title: "Framing", Options: []Option{
			choice("type", "Framing type", []string{"none", "railstb", "railslr", "frame", "tightframe", "plugin"}, nil),
			text("hspace", "Horizontal space between the frame and the boards", typeIsNot("none", "plugin")),
			text("vspace", "Vertical space between the frame and the boards", typeIsNot("none", "plugin")),
			text("space", "Space between the frame and the boards", typeIsNot("none", "plugin")),
			text("width", "Width of the rails or frame", typeIsNot("none", "plugin")),
			text("fillet", "Fillet radius of the panel corners", typeIsNot("none")),
			text("chamfer", "Chamfer of the panel corners", typeIsNot("none")),
			text("mintotalheight", "Minimal height of the panel", typeIsNot("none", "plugin")),
			text("mintotalwidth", "Minimal width of the panel", typeIsNot("none", "plugin")),
			text("slotwidth", "Width of the slot in tight frame", typeIs("tightframe")),
			choice("cuts", "Add cuts to the corners of the frame", []string{"none", "both", "v", "h"}, typeIs("frame", "tightframe")),
			text("code", "Plugin specification", typeIs("plugin")),
			text("arg", "Argument passed to the plugin", typeIs("plugin")),
		}},
		{Title: "Tooling", Options: []Option{
			choice("type", "Tooling holes", []string{"none", "3hole", "4hole", "plugin"}, nil),
			text("hoffset", "Horizontal offset of the holes", typeIsNot("none", "plugin")),
			text("voffset", "Vertical offset of the holes", typeIsNot("none", "plugin")),
			text("size", "Hole diameter", typeIsNot("none", "plugin")),
			choice("paste", "Include holes on the paste layer", yesNo, typeIsNot("none", "plugin")),
			text("soldermaskmargin", "Solder mask expansion of the holes", typeIsNot("none", "plugin")),
			text("code", "Plugin specification", typeIs("plugin")),
			text("arg", "Argument passed to the plugin", typeIs("plugin")),
		}},
		{Title: "Fiducials", Options: []Option{
			choice("type", "Fiducials", []string{"none", "3fid", "4fid", "plugin"}, nil),
			text("hoffset", "Horizontal offset of the fiducials", typeIsNot("none", "plugin")),
			text("voffset", "Vertical offset of the fiducials", typeIsNot("none", "plugin")),
			text("coppersize", "Diameter of the copper spot", typeIsNot("none", "plugin")),
			text("opening", "Diameter of the solder mask opening", typeIsNot("none", "plugin")),
			choice("paste", "Include fiducials on the paste layer", yesNo, typeIsNot("none", "plugin")),
			text("code", "Plugin specification", typeIs("plugin")),
			text("arg", "Argument passed to the plugin", typeIs("plugin")),
		}},
		{Title: "Text", Options: []Option{
			choice("type", "Text", []string{"none", "simple"}, nil),
			text("text", "Text to be rendered; variables are substituted", typeIs("simple")),
			choice("anchor", "Anchor of the text", []string{"mt", "tl", "tr", "ml", "mr", "mb", "bl", "br", "c"}, typeIs("simple")),
			text("hoffset", "Horizontal offset from the anchor", typeIs("simple")),
			text("voffset", "Vertical offset from the anchor", typeIs("simple")),
			text("orientation", "Orientation of the text", typeIs("simple")),
			text("width", "Width of the characters", typeIs("simple")),
			text("height", "Height of the characters", typeIs("simple")),
			text("thickness", "Stroke thickness", typeIs("simple")),
			choice("hjustify", "Horizontal justification", []string{"center", "left", "right"}, typeIs("simple")),
			choice("vjustify", "Vertical justification", []string{"center", "top", "bottom"}, typeIs("simple")),
			text("layer", "Layer of the text", typeIs("simple")),
		}},
		{Title: "Copperfill", Options: []Option{
			choice("type", "Copper fill of the non-board area", []string{"none", "solid", "hatched", "hex"}, nil),
			text("clearance", "Clearance between the fill and the boards", typeIsNot("none")),
			text("layers", "Layers to fill", typeIsNot("none")),
			text("width", "Width of the hatch lines", typeIs("hatched")),
			text("spacing", "Spacing of the hatch pattern", typeIs("hatched", "hex")),
			text("orientation", "Orientation of the hatch", typeIs("hatched")),
			text("diameter", "Diameter of the hexagons", typeIs("hex")),
		}},
		{Title: "Page", Options: []Option{
			choice("type", "Paper size", []string{"inherit", "A0", "A1", "A2", "A3", "A4", "A5", "A", "B", "C", "D", "E", "user"}, nil),
			choice("anchor", "Anchor of the panel on the page", []string{"mt", "tl", "tr", "ml", "mr", "mb", "bl", "br", "c"}, nil),
			text("posx", "X position of the panel anchor", nil),
			text("posy", "Y position of the panel anchor", nil),
			text("width", "Page width (user size only)", typeIs("user")),
			text("height", "Page height (user size only)", typeIs("user")),
		}},
		{Title: "Post", Options: []Option{
			choice("millradius", "Simulate milling with the given radius", []string{"0mm", "0.5mm", "1mm"}, nil),
			choice("reconstructarcs", "Reconstruct arcs in the board outline", yesNo, nil),
			choice("refillzones", "Refill zones after panelization", yesNo, nil),
			text("script", "Custom post-processing script", nil),
			text("scriptarg", "Argument passed to the script", nil),
			choice("origin", "Auxiliary origin placement", []string{"", "tl", "tr", "bl", "br", "c"}, nil),
			choice("dimensions", "Add dimensions to the panel", yesNo, nil),
			text("edgewidth", "Width of the edge cut lines", nil),
		}},
		{Title: "Debug", Options: []Option{
			choice("drawPartitionLines", "Draw partition lines", yesNo, nil),
			choice("drawBackboneLines", "Draw backbone lines", yesNo, nil),
			choice("drawboxes", "Draw board substrate boxes", yesNo, nil),
			choice("trace", "Print exception traces", yesNo, nil),
			choice("deterministic", "Make output deterministic", yesNo, nil),
			choice("drawtabfail", "Visualize failed tabs", yesNo, nil),
		}},
	}
}

package properties

import (
	"image/color"
	"sort"
)

// SCLClass describes one Scene Classification Layer code.
type SCLClass struct {
	Code  uint8
	Label string
	Color color.RGBA
}

// SCLClassCount is the number of codes defined by the L2A scene classification.
const SCLClassCount = 12

// sclClasses maps each SCL code to its label and display color.
var sclClasses = map[uint8]SCLClass{
	0:  {0, "No Data", color.RGBA{0, 0, 0, 255}},                        // black
	1:  {1, "Saturated or Defective", color.RGBA{255, 0, 0, 255}},       // red
	2:  {2, "Dark Area Pixels", color.RGBA{105, 105, 105, 255}},         // dimgray
	3:  {3, "Cloud Shadows", color.RGBA{139, 69, 19, 255}},              // saddlebrown
	4:  {4, "Vegetation", color.RGBA{0, 128, 0, 255}},                   // green
	5:  {5, "Not Vegetated", color.RGBA{189, 183, 107, 255}},            // darkkhaki
	6:  {6, "Water", color.RGBA{0, 0, 255, 255}},                        // blue
	7:  {7, "Unclassified", color.RGBA{128, 128, 128, 255}},             // gray
	8:  {8, "Cloud Medium Probability", color.RGBA{211, 211, 211, 255}}, // lightgray
	9:  {9, "Cloud High Probability", color.RGBA{245, 245, 245, 255}},   // whitesmoke
	10: {10, "Thin Cirrus", color.RGBA{0, 255, 255, 255}},               // cyan
	11: {11, "Snow / Ice", color.RGBA{147, 112, 219, 255}},              // mediumpurple
}

// sclClassCodes is the reverse of sclClasses, keyed by label.
var sclClassCodes = func() map[string]uint8 {
	codes := make(map[string]uint8, len(sclClasses))
	for code, class := range sclClasses {
		codes[class.Label] = code
	}
	return codes
}()

// SCLClassByCode returns the class for code, if the legend defines one.
func SCLClassByCode(code uint8) (SCLClass, bool) {
	class, ok := sclClasses[code]
	return class, ok
}

// SCLClassCode returns the code for a class label.
func SCLClassCode(label string) (uint8, bool) {
	code, ok := sclClassCodes[label]
	return code, ok
}

// SortedSCLClasses returns the classes in ascending code order.
func SortedSCLClasses() []SCLClass {
	classes := make([]SCLClass, 0, len(sclClasses))
	for _, class := range sclClasses {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool {
		return classes[i].Code < classes[j].Code
	})
	return classes
}

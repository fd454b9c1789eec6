package dataset

// unitFixes maps unit strings the archive encodes in non-CF forms to
// spellings downstream tools accept.
var unitFixes = map[string]string{
	"(0 - 1)":               "-",
	"m of equivalent water": "m",
	"~":                     "-",
}

// FixUnits rewrites known non-CF unit strings on every field.
func (d *Dataset) FixUnits() {
	for _, name := range d.order {
		f := d.fields[name]
		if fixed, ok := unitFixes[f.Units]; ok {
			f.Units = fixed
		}
	}
}

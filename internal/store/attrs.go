package store

import (
	"time"

	"github.com/san-kum/vremap/internal/dataset"
)

const era5Reference = "Hersbach, H., Bell, B., Berrisford, P., Hirahara, S., " +
	"Horányi, A., Muñoz‐Sabater, J., ... & Simmons, A. (2020). The ERA5 " +
	"global reanalysis. Quarterly Journal of the Royal Meteorological Society."

// StampGlobals sets the global attributes every output file carries.
func StampGlobals(ds *dataset.Dataset) {
	ds.Attrs["Conventions"] = "CF-1.7"
	ds.Attrs["ERA5 reference"] = era5Reference
	ds.Attrs["Created"] = time.Now().Format(time.RFC3339)
	ds.Attrs["Created with"] = "https://github.com/san-kum/vremap"
}

package catalog

import "github.com/sells-group/feature-query/pkg/featureservice"

const (
	censusACS = "https://services.arcgis.com/P3ePLMYs2RVChkJx/arcgis/rest/services"
	tigerweb  = "https://tigerweb.geo.census.gov/arcgis/rest/services/TIGERweb"
	drought   = "https://services9.arcgis.com/RHVPKKiFTONKtxq3/arcgis/rest/services/US_Drought_Intensity_v1/FeatureServer"
	wbd       = "https://hydro.nationalmap.gov/arcgis/rest/services/wbd/MapServer"
)

// Default returns the built-in county-level datasets.
func Default() *Registry {
	r := NewRegistry()
	for _, d := range defaultDatasets() {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}

func defaultDatasets() []Dataset {
	return []Dataset{
		{
			Name:        "population",
			Description: "ACS total population by county",
			ServiceURL:  censusACS + "/ACS_Total_Population_Boundaries/FeatureServer/1",
			OutFields:   []string{"GEOID", "NAME", "B01001_001E", "B01001_calc_pctMaleE", "B01001_calc_pctFemaleE"},
			FIPSField:   "GEOID",
			QuoteFIPS:   true,
			Shape:       featureservice.AttributesOnly,
		},
		{
			Name:        "housing",
			Description: "ACS housing units and occupancy by county",
			ServiceURL:  censusACS + "/ACS_Housing_Units_Occupancy_Boundaries/FeatureServer/1",
			OutFields:   []string{"GEOID", "NAME", "B25002_001E", "B25002_002E", "B25002_003E", "B25002_calc_pctVacE"},
			FIPSField:   "GEOID",
			QuoteFIPS:   true,
			Shape:       featureservice.AttributesOnly,
		},
		{
			Name:        "water_area",
			Description: "TIGER land and water area by county (square meters)",
			ServiceURL:  tigerweb + "/State_County/MapServer/1",
			OutFields:   []string{"GEOID", "NAME", "ALAND", "AWATER"},
			FIPSField:   "GEOID",
			QuoteFIPS:   true,
			Shape:       featureservice.AttributesOnly,
		},
		{
			Name:        "drought",
			Description: "Current U.S. Drought Monitor intensity by county",
			ServiceURL:  drought + "/3",
			OutFields:   []string{"name", "state_abbr", "D0", "D1", "D2", "D3", "D4", "ddate"},
			FIPSField:   "fips",
			QuoteFIPS:   true,
			Shape:       featureservice.AttributesOnly,
		},
		{
			Name:        "watershed",
			Description: "Watershed Boundary Dataset subwatersheds (HUC12) by point or HUC code",
			ServiceURL:  wbd + "/6",
			OutFields:   []string{"huc12 as HUC12", "name", "areasqkm", "states"},
			HUCField:    "huc12",
			HUCLevel:    12,
			Shape:       featureservice.AttributesOnly,
		},
		{
			Name:        "geoid",
			Description: "TIGER census tract containing a point, with geometry",
			ServiceURL:  tigerweb + "/Tracts_Blocks/MapServer/0",
			OutFields:   []string{"GEOID", "STATE", "COUNTY", "TRACT", "NAME"},
			FIPSField:   "GEOID",
			QuoteFIPS:   true,
			Shape:       featureservice.Full,
		},
		{
			Name:           "drought_history",
			Description:    "Weekly U.S. Drought Monitor history for a county",
			ServiceURL:     drought + "/3",
			OutFields:      []string{"ddate", "D0", "D1", "D2", "D3", "D4"},
			FIPSField:      "fips",
			QuoteFIPS:      true,
			Shape:          featureservice.Related,
			RelationshipID: featureservice.Int(0),
			ObjectIDField:  DefaultObjectIDField,
		},
	}
}

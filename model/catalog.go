package model

import "time"

// Catalog 按名称查找飞行路线
type Catalog []Flight

// Flight 根据名称查找路线
func (c Catalog) Flight(name string) (Flight, bool) {
	for _, f := range c {
		if f.Name == name {
			return f, true
		}
	}
	return Flight{}, false
}

// Index 获取路线在列表中的索引
func (c Catalog) Index(name string) int {
	for i, f := range c {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// DemoFlights 内置演示路线
var DemoFlights = Catalog{
	{
		Name:  "berlin-tour",
		Title: "Berlin Mitte",
		Anchors: []Anchor{
			{Lon: 13.3777, Lat: 52.5163, Height: 400, Duration: 4 * time.Second},
			{Lon: 13.4010, Lat: 52.5208, Height: 350, Duration: 5 * time.Second},
			{Lon: 13.4132, Lat: 52.5219, Height: 500, Duration: 4 * time.Second},
			{Lon: 13.3903, Lat: 52.5096, Height: 450, Duration: 0},
		},
	},
	{
		Name:  "rhine-valley",
		Title: "Mittelrheintal",
		Anchors: []Anchor{
			{Lon: 7.5890, Lat: 50.3569, Height: 1200, Duration: 6 * time.Second},
			{Lon: 7.6544, Lat: 50.2335, Height: 900, Duration: 6 * time.Second},
			{Lon: 7.7298, Lat: 50.1579, Height: 800, Duration: 0},
		},
	},
	{
		Name:  "harbour-loop",
		Title: "Hamburg Hafen",
		Loop:  true,
		Anchors: []Anchor{
			{Lon: 9.9698, Lat: 53.5413, Height: 300, Duration: 3 * time.Second},
			{Lon: 9.9841, Lat: 53.5453, Height: 280, Duration: 3 * time.Second},
			{Lon: 9.9930, Lat: 53.5395, Height: 320, Duration: 3 * time.Second},
		},
	},
	{
		Name:  "alps-crossing",
		Title: "Alpenüberquerung",
		Anchors: []Anchor{
			{Lon: 11.0946, Lat: 47.4919, Height: 4000, Duration: 8 * time.Second},
			{Lon: 11.3928, Lat: 47.2692, Height: 3500, Duration: 8 * time.Second},
			{Lon: 11.5086, Lat: 46.9987, Height: 3800, Duration: 8 * time.Second},
			{Lon: 11.3548, Lat: 46.4983, Height: 3000, Duration: 0},
		},
	},
}

// DefaultFlight 默认路线
const DefaultFlight = "berlin-tour"

// FindFlight 在内置路线中查找
func FindFlight(name string) (Flight, bool) {
	return DemoFlights.Flight(name)
}

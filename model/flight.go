package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Anchor 表示飞行路线上的一个相机锚点，Duration 为飞往下一个锚点所需时间
type Anchor struct {
	Lon      float64       `json:"lon"`
	Lat      float64       `json:"lat"`
	Height   float64       `json:"height"`
	Duration time.Duration `json:"duration"`
}

// Flight 表示一条相机飞行路线（如 "berlin-tour"）
type Flight struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Anchors []Anchor `json:"anchors"`
	Loop    bool     `json:"loop"`
}

// Extent 经纬度包围盒
type Extent struct {
	MinLon float64 `json:"minLon"`
	MinLat float64 `json:"minLat"`
	MaxLon float64 `json:"maxLon"`
	MaxLat float64 `json:"maxLat"`
}

// Center 返回包围盒中心
func (e Extent) Center() (lon, lat float64) {
	return (e.MinLon + e.MaxLon) / 2, (e.MinLat + e.MaxLat) / 2
}

func (e Extent) String() string {
	return fmt.Sprintf("[%.4f,%.4f → %.4f,%.4f]", e.MinLon, e.MinLat, e.MaxLon, e.MaxLat)
}

var (
	ErrNoName        = errors.New("flight has no name")
	ErrTooFewAnchors = errors.New("flight needs at least two anchors")
)

// Validate 检查路线是否可以播放
func (f Flight) Validate() error {
	if f.Name == "" {
		return ErrNoName
	}
	if len(f.Anchors) < 2 {
		return fmt.Errorf("%s: %w", f.Name, ErrTooFewAnchors)
	}
	for i, a := range f.Anchors {
		if a.Duration < 0 {
			return fmt.Errorf("%s: anchor %d has negative duration", f.Name, i)
		}
		if a.Lat < -90 || a.Lat > 90 || a.Lon < -180 || a.Lon > 180 {
			return fmt.Errorf("%s: anchor %d out of range", f.Name, i)
		}
	}
	return nil
}

// Duration 返回播放总时长（仅循环路线计算最后一个锚点）
func (f Flight) Duration() time.Duration {
	var total time.Duration
	for i, a := range f.Anchors {
		if i == len(f.Anchors)-1 && !f.Loop {
			break
		}
		total += a.Duration
	}
	return total
}

// Extent 返回所有锚点的包围盒
func (f Flight) Extent() Extent {
	if len(f.Anchors) == 0 {
		return Extent{}
	}
	e := Extent{
		MinLon: f.Anchors[0].Lon, MaxLon: f.Anchors[0].Lon,
		MinLat: f.Anchors[0].Lat, MaxLat: f.Anchors[0].Lat,
	}
	for _, a := range f.Anchors[1:] {
		e.MinLon = math.Min(e.MinLon, a.Lon)
		e.MaxLon = math.Max(e.MaxLon, a.Lon)
		e.MinLat = math.Min(e.MinLat, a.Lat)
		e.MaxLat = math.Max(e.MaxLat, a.Lat)
	}
	return e
}

const earthRadius = 6371008.8 // 地球平均半径（米）

// PathLength 返回路线地面距离（米）
func (f Flight) PathLength() float64 {
	var total float64
	for i := 1; i < len(f.Anchors); i++ {
		total += haversine(f.Anchors[i-1], f.Anchors[i])
	}
	if f.Loop && len(f.Anchors) > 2 {
		total += haversine(f.Anchors[len(f.Anchors)-1], f.Anchors[0])
	}
	return total
}

func haversine(a, b Anchor) float64 {
	rad := math.Pi / 180
	dLat := (b.Lat - a.Lat) * rad
	dLon := (b.Lon - a.Lon) * rad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*rad)*math.Cos(b.Lat*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadius * math.Asin(math.Sqrt(h))
}

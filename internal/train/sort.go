package train

import "sort"

// SortByDeparture orders trains by the departure time at their first
// stop. The sort is stable so trains with equal times keep their
// relative order.
func SortByDeparture(trains []*Train, ascending bool) {
	sort.SliceStable(trains, func(i, j int) bool {
		if ascending {
			return trains[i].DepartureTime() < trains[j].DepartureTime()
		}
		return trains[j].DepartureTime() < trains[i].DepartureTime()
	})
}

// SortByArrival orders trains by the arrival time at their last stop
func SortByArrival(trains []*Train, ascending bool) {
	sort.SliceStable(trains, func(i, j int) bool {
		if ascending {
			return trains[i].ArrivalTime() < trains[j].ArrivalTime()
		}
		return trains[j].ArrivalTime() < trains[i].ArrivalTime()
	})
}

package rooms

import (
	"net/http"
	"sort"

	"github.com/go-chi/render"

	"github.com/gtaEPIC/EZ-VDONINJA-LINK/core"
)

// RoomLister exposes the live room directory.
type RoomLister interface {
	Rooms() []core.RoomInfo
}

// HandleList serves the current rooms, busiest first.
func HandleList(lister RoomLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := lister.Rooms()
		if list == nil {
			list = []core.RoomInfo{}
		}

		sort.Slice(list, func(i, j int) bool {
			if len(list[i].Clients) == len(list[j].Clients) {
				return list[i].Name < list[j].Name
			}
			return len(list[i].Clients) > len(list[j].Clients)
		})

		render.JSON(w, r, list)
	}
}

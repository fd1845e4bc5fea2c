package banner

import "fmt"

const Version = "1.0.0"

func Print() {
	banner := `
               _ __    __
   ____ ___  __(_) /___/ /___ _
  / __ '/ / / / / / __  / __ '/
 / /_/ / /_/ / / / /_/ / /_/ /
 \__, /\__,_/_/_/\__,_/\__, /
/____/                   /_/  v%s - Guild Speech Queue
    `
	fmt.Printf(banner, Version)
	fmt.Println("\n------------------------------------------------")
}

package main

import (
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"jordanella.com/mtg-scanner-go/internal/gui"
)

func newGUICmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Open the desktop scanner",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := flags.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			myApp := fyneapp.NewWithID("com.jordanella.mtg-scanner-go")
			myApp.Settings().SetTheme(&gui.ScannerTheme{})

			mainWindow := myApp.NewWindow("MTG Card Scanner")
			mainWindow.Resize(gui.DefaultWindowSize)

			controller := gui.NewController(a, myApp, mainWindow)
			mainWindow.SetContent(controller.BuildUI())
			mainWindow.SetMaster()

			// close the window on Ctrl+C as well
			go func() {
				<-cmd.Context().Done()
				myApp.Quit()
			}()

			a.Health.Start()
			controller.Start()
			mainWindow.ShowAndRun()

			controller.Shutdown()
			return nil
		},
	}
}

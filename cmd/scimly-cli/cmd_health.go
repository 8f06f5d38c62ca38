package main

// ---- Health Commands ----

func (c *CLI) healthCommand() error {
	resp, err := c.get("/health")
	if err != nil {
		return err
	}
	return prettyPrint(resp)
}

package http

import "fmt"

// Small inline pages for the confirmation links; drivers open these on
// their phones straight from the email.

const invalidLinkPage = `<!DOCTYPE html>
<html>
<head>
	<title>Invalid Link</title>
	<meta name="viewport" content="width=device-width, initial-scale=1">
	<style>
		body { font-family: Arial, sans-serif; text-align: center; padding: 50px; background-color: #f0f0f0; }
		.container { background: white; padding: 40px; border-radius: 15px; max-width: 500px; margin: 0 auto; }
	</style>
</head>
<body>
	<div class="container">
		<h2>Link Expired or Invalid</h2>
		<p>This confirmation link has expired or is invalid.</p>
		<p>If you need to exit, please try again or contact support.</p>
	</div>
</body>
</html>`

func approvedPage(plate string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<title>Exit Approved</title>
	<meta name="viewport" content="width=device-width, initial-scale=1">
	<style>
		body { font-family: Arial, sans-serif; text-align: center; padding: 50px; background-color: #e8f5e8; }
		.container { background: white; padding: 40px; border-radius: 15px; max-width: 500px; margin: 0 auto; border: 3px solid #4CAF50; }
		.vehicle { color: #2196F3; font-weight: bold; font-size: 20px; margin: 20px 0; }
	</style>
</head>
<body>
	<div class="container">
		<h1 style="color: #4CAF50;">Exit Approved</h1>
		<div class="vehicle">Vehicle: %s</div>
		<p><strong>Gate is opening now.</strong> Please proceed slowly to the exit gate
		and wait for it to fully open. It will close automatically after you pass.</p>
	</div>
</body>
</html>`, plate)
}

func deniedPage(plate string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<title>Exit Denied</title>
	<meta name="viewport" content="width=device-width, initial-scale=1">
	<style>
		body { font-family: Arial, sans-serif; text-align: center; padding: 50px; background-color: #fce8e8; }
		.container { background: white; padding: 40px; border-radius: 15px; max-width: 500px; margin: 0 auto; border: 3px solid #f44336; }
		.vehicle { color: #2196F3; font-weight: bold; font-size: 20px; margin: 20px 0; }
	</style>
</head>
<body>
	<div class="container">
		<h1 style="color: #f44336;">Exit Denied</h1>
		<div class="vehicle">Vehicle: %s</div>
		<p><strong>Gate will remain closed.</strong> The exit request has been denied.</p>
		<p>If this was an error or you need assistance, please contact parking support.</p>
	</div>
</body>
</html>`, plate)
}

func confirmationPage(plate, token string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<title>Exit Parking Confirmation</title>
	<meta name="viewport" content="width=device-width, initial-scale=1">
	<style>
		body { font-family: Arial, sans-serif; text-align: center; padding: 50px; background-color: #f0f0f0; }
		.container { background: white; padding: 30px; border-radius: 10px; max-width: 400px; margin: 0 auto; }
		.vehicle { color: #2196F3; font-weight: bold; font-size: 18px; margin: 20px 0; }
		a.btn { display: inline-block; padding: 15px 30px; margin: 10px; border-radius: 5px; font-size: 16px; color: white; text-decoration: none; }
		.yes-btn { background-color: #4CAF50; }
		.no-btn { background-color: #f44336; }
	</style>
</head>
<body>
	<div class="container">
		<h2>Exit Parking Confirmation</h2>
		<p>Vehicle Number:</p>
		<div class="vehicle">%s</div>
		<p>Are you exiting the parking?</p>
		<a class="btn yes-btn" href="/exit-response/%s/yes">Yes, Open Gate</a>
		<a class="btn no-btn" href="/exit-response/%s/no">No, Keep Closed</a>
	</div>
</body>
</html>`, plate, token, token)
}
